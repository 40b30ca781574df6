package appstate

import "fmt"

// Tool selects how pointer input on the surface is interpreted. Exactly one
// tool is active at a time, so freehand drawing and highlight placement can
// never be enabled together.
type Tool int

const (
	ToolNone Tool = iota
	ToolSelect
	ToolFreehand
	ToolHighlight
)

var toolNames = [...]string{"none", "select", "freehand", "highlight"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool maps a tool name onto a Tool.
func ParseTool(s string) (Tool, error) {
	switch s {
	case "none", "off", "":
		return ToolNone, nil
	case "select", "move":
		return ToolSelect, nil
	case "freehand", "draw", "pen":
		return ToolFreehand, nil
	case "highlight":
		return ToolHighlight, nil
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}
