package arbor

import (
	"fmt"
	"os"
	"time"
)

// globalDebug enables the tree sanity checks in node operations. It is set by
// Canvas.SetDebugMode and App.SetDebugMode.
var globalDebug bool

// debugf prints a "[arbor]" prefixed line to stderr.
func debugf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[arbor] "+format+"\n", args...)
}

// debugLogRender prints the outcome of one reconciliation pass over a surface.
func debugLogRender(surface string, stats RenderStats, elapsed time.Duration) {
	if surface == "" {
		surface = "default"
	}
	debugf("render %s: created %d | updated %d | moved %d | skipped %d | removed %d | %v",
		surface, stats.Created, stats.Updated, stats.Moved, stats.Skipped, stats.Removed, elapsed)
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("arbor debug: %s on disposed node %q (ID was %d)", op, n.Name, n.ID))
	}
}

// debugCheckTreeDepth warns on stderr if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		debugf("warning: tree depth %d exceeds %d (node %q)", depth, debugMaxTreeDepth, n.Name)
	}
}

// debugCheckChildCount warns on stderr if a node has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount {
		debugf("warning: node %q has %d children (threshold %d)", n.Name, len(n.children), debugMaxChildCount)
	}
}
