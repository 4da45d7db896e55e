package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
)

// Overlay contains thread progress to highlight on the graph.
type Overlay struct {
	Visited []domain.StepID
	Current domain.StepID
}

// NewOverlay derives the visited steps and the next step from a thread's checkpoints.
func NewOverlay(cps []domain.Checkpoint) *Overlay {
	if len(cps) == 0 {
		return nil
	}
	o := &Overlay{Current: cps[len(cps)-1].Next}
	for _, cp := range cps {
		if cp.Step != "" {
			o.Visited = append(o.Visited, cp.Step)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of g.
// The entry step is drawn as a circle and the terminal sentinel as a stadium.
// Conditional edges are dashed and labelled with the branch they take.
func GenerateMermaid(g *dsl.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.Steps() {
		opener, closer := "[", "]"
		if id == g.Entry() {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, id, closer)
	}

	terminal := false
	for _, e := range g.Edges() {
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		if e.To == domain.End {
			terminal = true
		}
		if !e.Conditional {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
			continue
		}
		label := "continue"
		if e.To == domain.End {
			label = "done"
		}
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, label, to)
	}
	if terminal {
		fmt.Fprintf(&sb, "    %s([\"end\"])\n", sanitizeMermaidID(domain.End))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safe := sanitizeMermaidID(id)
			if !seen[safe] && safe != "" {
				seen[safe] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safe)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

// sanitizeMermaidID maps a step to a Mermaid-safe identifier.
// The terminal sentinel is drawn as END.
func sanitizeMermaidID(id domain.StepID) string {
	if id == domain.End {
		return "END"
	}
	s := strings.ReplaceAll(string(id), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
