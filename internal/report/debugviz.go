package report

import (
	"io"

	"github.com/ajstarks/svgo"

	"github.com/aclements/cilksan-go/internal/spbag"
)

// DumpBagForest renders the live SP-bag union-find forest as a simple
// boxes-and-arrows SVG, for visually debugging the disjoint-set engine.
//
// The teacher's rtcheck shells out to "dot -Tsvg" (see order.go's
// WriteToHTML) to rasterize its lock-order graph; this package instead uses
// the pure-Go github.com/ajstarks/svgo library already present in the
// dependency pack, so a debug dump works without a Graphviz install.
func DumpBagForest(w io.Writer, eng *spbag.Engine) {
	nodes := eng.Snapshot()

	const boxW, boxH, gap = 90, 30, 50
	width := (len(nodes) + 1) * (boxW + gap)
	height := 400

	canvas := svg.New(w)
	canvas.Start(width, height)
	defer canvas.End()

	pos := make(map[spbag.Handle][2]int)
	for i, n := range nodes {
		x := (i + 1) * (boxW + gap)
		y := height / 2
		pos[n.Handle] = [2]int{x, y}
	}

	for _, n := range nodes {
		p := pos[n.Handle]
		fill := "lightgray"
		switch {
		case !n.Live:
			fill = "white"
		case n.Kind == spbag.PBag:
			fill = "lightyellow"
		default:
			fill = "lightblue"
		}
		canvas.Rect(p[0]-boxW/2, p[1]-boxH/2, boxW, boxH, "fill:"+fill+";stroke:black")
		canvas.Text(p[0], p[1], nodeLabel(n), "text-anchor:middle;font-size:12px")

		if n.Parent != spbag.NoHandle {
			pp := pos[n.Parent]
			canvas.Line(p[0], p[1]-boxH/2, pp[0], pp[1]+boxH/2, "stroke:black;marker-end:url(#arrow)")
		}
	}
}

func nodeLabel(n spbag.NodeInfo) string {
	kind := "S"
	if n.Kind == spbag.PBag {
		kind = "P"
	}
	if !n.Live {
		kind = "free"
	}
	return kind
}
