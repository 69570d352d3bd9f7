package engine

import (
	"fmt"

	"github.com/aclements/cilksan-go/internal/lockset"
	"github.com/aclements/cilksan-go/internal/trace"
)

// Replay drives the context through every parsed trace.Event in order,
// exactly as a live instrumentation-ABI callback stream would.
func (c *Context) Replay(events []trace.Event) error {
	for _, ev := range events {
		if err := c.dispatch(ev); err != nil {
			return fmt.Errorf("line %d: %w", ev.LineNumber, err)
		}
	}
	return nil
}

func (c *Context) dispatch(ev trace.Event) error {
	switch ev.Kind {
	case trace.KindEnter:
		c.EnterCilkFunction()
	case trace.KindEnterHelper:
		c.EnterHelper()
	case trace.KindDetach:
		c.Detach()
	case trace.KindDetachContinue:
		c.DetachContinue()
	case trace.KindSync:
		c.Sync()
	case trace.KindLeave:
		c.Leave()
	case trace.KindReturnFromDetach:
		c.ReturnFromDetach()
	case trace.KindLoopBegin:
		c.LoopBegin()
	case trace.KindLoopIterationBegin:
		c.LoopIterationBegin()
	case trace.KindLoopIterationEnd:
		c.LoopIterationEnd()
	case trace.KindLoopEnd:
		c.LoopEnd()
	case trace.KindRead:
		c.Read(uintptr(ev.Addr), ev.Size, ev.Site)
	case trace.KindWrite:
		c.Write(uintptr(ev.Addr), ev.Size, ev.Site)
	case trace.KindAlloc:
		c.Alloc(uintptr(ev.Addr), ev.Size, ev.Site)
	case trace.KindFree:
		c.Free(uintptr(ev.Addr), ev.Size)
	case trace.KindRealloc:
		c.Realloc(uintptr(ev.OldAddr), ev.OldSize, uintptr(ev.Addr), ev.Size, ev.Site)
	case trace.KindLock:
		c.Lock(lockset.ID(ev.LockID))
	case trace.KindUnlock:
		c.Unlock(lockset.ID(ev.LockID))
	default:
		return fmt.Errorf("unhandled event kind %q", ev.Kind)
	}
	return nil
}
