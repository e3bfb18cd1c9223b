package smb

import (
	"fmt"
	"sort"
	"strings"
)

// NES controller bits, most significant first.
const (
	ButtonRight  uint8 = 0b10000000
	ButtonLeft   uint8 = 0b01000000
	ButtonDown   uint8 = 0b00100000
	ButtonUp     uint8 = 0b00010000
	ButtonStart  uint8 = 0b00001000
	ButtonSelect uint8 = 0b00000100
	ButtonB      uint8 = 0b00000010
	ButtonA      uint8 = 0b00000001
)

// ButtonMap maps controller button names to their bit.
var ButtonMap = map[string]uint8{
	"right":  ButtonRight,
	"left":   ButtonLeft,
	"down":   ButtonDown,
	"up":     ButtonUp,
	"start":  ButtonStart,
	"select": ButtonSelect,
	"B":      ButtonB,
	"A":      ButtonA,
	"NOOP":   0,
}

// RightOnly only moves right.
var RightOnly = [][]string{
	{"NOOP"},
	{"right"},
	{"right", "A"},
	{"right", "B"},
	{"right", "A", "B"},
}

// SimpleMovement is RightOnly plus standing jump and walking left.
var SimpleMovement = [][]string{
	{"NOOP"},
	{"right"},
	{"right", "A"},
	{"right", "B"},
	{"right", "A", "B"},
	{"A"},
	{"left"},
}

var ComplexMovement = [][]string{
	{"NOOP"},
	{"right"},
	{"right", "A"},
	{"right", "B"},
	{"right", "A", "B"},
	{"A"},
	{"left"},
	{"left", "A"},
	{"left", "B"},
	{"left", "A", "B"},
	{"down"},
	{"up"},
}

var actionSets = map[string][][]string{
	"right_only": RightOnly,
	"simple":     SimpleMovement,
	"complex":    ComplexMovement,
}

// ActionSet returns a named action list: right_only, simple or complex.
func ActionSet(name string) ([][]string, error) {
	set, ok := actionSets[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(actionSets))
		for n := range actionSets {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown action set %q, want one of %s", name, strings.Join(names, ", "))
	}
	return set, nil
}

// ButtonString renders a controller byte as its pressed button names.
func ButtonString(b uint8) string {
	if b == 0 {
		return "NOOP"
	}
	order := []string{"right", "left", "down", "up", "start", "select", "B", "A"}
	pressed := make([]string, 0, len(order))
	for _, name := range order {
		if b&ButtonMap[name] != 0 {
			pressed = append(pressed, name)
		}
	}
	return strings.Join(pressed, "+")
}
