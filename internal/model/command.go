package model

// CommandKind identifies an editor command.
type CommandKind string

const (
	CmdLoad                CommandKind = "load"
	CmdQuit                CommandKind = "quit"
	CmdRestart             CommandKind = "restart"
	CmdCompile             CommandKind = "compile"
	CmdShowConstraints     CommandKind = "show_constraints"
	CmdSolveConstraints    CommandKind = "solve_constraints"
	CmdNextGoal            CommandKind = "next_goal"
	CmdPreviousGoal        CommandKind = "previous_goal"
	CmdGive                CommandKind = "give"
	CmdRefine              CommandKind = "refine"
	CmdAuto                CommandKind = "auto"
	CmdCase                CommandKind = "case"
	CmdInferType           CommandKind = "infer_type"
	CmdGoalType            CommandKind = "goal_type"
	CmdEscape              CommandKind = "escape"
	CmdInputSymbol         CommandKind = "input_symbol"
)

var validCommandKinds = map[CommandKind]bool{
	CmdLoad:             true,
	CmdQuit:             true,
	CmdRestart:          true,
	CmdCompile:          true,
	CmdShowConstraints:  true,
	CmdSolveConstraints: true,
	CmdNextGoal:         true,
	CmdPreviousGoal:     true,
	CmdGive:             true,
	CmdRefine:           true,
	CmdAuto:             true,
	CmdCase:             true,
	CmdInferType:        true,
	CmdGoalType:         true,
	CmdEscape:           true,
	CmdInputSymbol:      true,
}

// Command is one editor-driven command. FilePath names the Agda file the
// command targets; GoalIndex and Text carry goal-scoped payloads where the
// kind needs them (Give, Case, InputSymbol, ...).
type Command struct {
	Kind      CommandKind `json:"kind"`
	FilePath  string      `json:"file_path,omitempty"`
	GoalIndex int         `json:"goal_index,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// Validate checks the command is well-formed enough to dispatch.
func (c Command) Validate() error {
	if !validCommandKinds[c.Kind] {
		return &ValidationError{Field: "kind", Reason: "unknown command kind " + string(c.Kind)}
	}
	switch c.Kind {
	case CmdLoad, CmdRestart, CmdCompile:
		if c.FilePath == "" {
			return &ValidationError{Field: "file_path", Reason: "required for " + string(c.Kind)}
		}
	}
	return nil
}

// IsCritical reports whether the command is escape or input-method
// traffic, which must not queue behind an in-flight proof-checker request.
// The daemon's dispatch handler uses it only to tag its log line; every
// command, critical or not, is fed to the critical lane.
func IsCritical(c Command) bool {
	switch c.Kind {
	case CmdEscape, CmdInputSymbol:
		return true
	}
	return false
}
