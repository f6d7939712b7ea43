package domain

// Action is the verb of a compiled motion instruction.
type Action string

const (
	ActionMoveForward Action = "move forward"
	ActionTurnLeft    Action = "turn left"
	ActionTurnRight   Action = "turn right"
)

// Instruction is one step of the compiled motion program. Step numbers start at 1
// and have no gaps. Value is the formatted magnitude with its unit ("120.0cm", "90°").
type Instruction struct {
	Step   int    `json:"step"`
	Action Action `json:"action"`
	Value  string `json:"value"`
}
