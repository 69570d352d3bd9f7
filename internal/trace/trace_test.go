package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseBasicEvents(t *testing.T) {
	input := `
# a tiny cilk_for sum
enter
loop_begin
loop_iteration_begin
write 0x1000 8 1
loop_iteration_end
loop_iteration_begin
write 0x1008 8 2
loop_iteration_end
loop_end
leave
`
	events, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	if events[0].Kind != KindEnter {
		t.Fatalf("expected first event to be enter, got %v", events[0].Kind)
	}
	if events[3].Kind != KindWrite || events[3].Addr != 0x1000 || events[3].Size != 8 || events[3].Site != 1 {
		t.Fatalf("unexpected write event: %+v", events[3])
	}
}

func TestParseReallocCarriesOldSize(t *testing.T) {
	events, err := Parse(strings.NewReader("realloc 0x5000 8 0x5000 4 9\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != KindRealloc || ev.OldAddr != 0x5000 || ev.OldSize != 8 || ev.Addr != 0x5000 || ev.Size != 4 || ev.Site != 9 {
		t.Fatalf("unexpected realloc event: %+v", ev)
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse(strings.NewReader("frobnicate\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown event kind")
	}
}

func TestWriteRaceFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRace(&buf, 0x1000, 1, 2); err != nil {
		t.Fatal(err)
	}
	want := "race 0x1000 1 2\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}
