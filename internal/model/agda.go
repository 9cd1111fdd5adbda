package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RequestKind identifies one interaction command sent to Agda.
type RequestKind string

const (
	ReqLoad            RequestKind = "load"
	ReqCompile         RequestKind = "compile"
	ReqGive            RequestKind = "give"
	ReqRefine          RequestKind = "refine"
	ReqAuto            RequestKind = "auto"
	ReqMakeCase        RequestKind = "make_case"
	ReqInferType       RequestKind = "infer_type"
	ReqGoalType        RequestKind = "goal_type"
	ReqSolveAll        RequestKind = "solve_all"
	ReqShowConstraints RequestKind = "show_constraints"
	ReqAbort           RequestKind = "abort"
)

// Request is one proof-checker request. It serializes to an IOTCM line on
// the agda --interaction-json stdin.
type Request struct {
	Kind      RequestKind
	FilePath  string
	GoalIndex int
	Expr      string
}

// Encode renders the IOTCM wire line, without the trailing newline.
func (r Request) Encode() string {
	file := strconv.Quote(r.FilePath)
	switch r.Kind {
	case ReqLoad:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_load %s [])`, file, file)
	case ReqCompile:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_compile MAlonzo %s [])`, file, file)
	case ReqGive:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_give WithoutForce %d noRange %s)`,
			file, r.GoalIndex, strconv.Quote(r.Expr))
	case ReqRefine:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_refine_or_intro False %d noRange %s)`,
			file, r.GoalIndex, strconv.Quote(r.Expr))
	case ReqAuto:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_autoOne %d noRange %s)`,
			file, r.GoalIndex, strconv.Quote(r.Expr))
	case ReqMakeCase:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_make_case %d noRange %s)`,
			file, r.GoalIndex, strconv.Quote(r.Expr))
	case ReqInferType:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_infer Simplified %d noRange %s)`,
			file, r.GoalIndex, strconv.Quote(r.Expr))
	case ReqGoalType:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_goal_type Simplified %d noRange "")`,
			file, r.GoalIndex)
	case ReqSolveAll:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_solveAll Simplified)`, file)
	case ReqShowConstraints:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_constraints)`, file)
	case ReqAbort:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_abort)`, file)
	default:
		return fmt.Sprintf(`IOTCM %s NonInteractive Direct (Cmd_load %s [])`, file, file)
	}
}

func (r Request) String() string {
	return string(r.Kind)
}

// ResponseKind discriminates the JSON response frames Agda emits.
type ResponseKind string

const (
	RespDisplayInfo       ResponseKind = "DisplayInfo"
	RespInteractionPoints ResponseKind = "InteractionPoints"
	RespGiveAction        ResponseKind = "GiveAction"
	RespMakeCase          ResponseKind = "MakeCase"
	RespSolveAll          ResponseKind = "SolveAll"
	RespStatus            ResponseKind = "Status"
	RespRunningInfo       ResponseKind = "RunningInfo"
	RespClearRunningInfo  ResponseKind = "ClearRunningInfo"
	RespClearHighlighting ResponseKind = "ClearHighlighting"
	RespHighlightingInfo  ResponseKind = "HighlightingInfo"
	RespDoneAborting      ResponseKind = "DoneAborting"
	RespDoneExiting       ResponseKind = "DoneExiting"
)

// DisplayInfo is the payload of a DisplayInfo response.
type DisplayInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Solution is one solved interaction point from a SolveAll response.
type Solution struct {
	InteractionPoint int    `json:"interactionPoint"`
	Expression       string `json:"expression"`
}

// Response is one parsed frame of the Agda response stream.
type Response struct {
	Kind ResponseKind `json:"kind"`

	Info              *DisplayInfo `json:"info,omitempty"`
	InteractionPoints []int        `json:"interactionPoints,omitempty"`
	GiveResult        string       `json:"giveResult,omitempty"`
	InteractionPoint  int          `json:"interactionPoint,omitempty"`
	Variant           string       `json:"variant,omitempty"`
	Clauses           []string     `json:"clauses,omitempty"`
	Solutions         []Solution   `json:"solutions,omitempty"`
	Message           string       `json:"message,omitempty"`
	CheckedModule     string       `json:"checked,omitempty"`
	FilePath          string       `json:"filepath,omitempty"`
}

func (r Response) String() string {
	return string(r.Kind)
}

var validResponseKinds = map[ResponseKind]bool{
	RespDisplayInfo:       true,
	RespInteractionPoints: true,
	RespGiveAction:        true,
	RespMakeCase:          true,
	RespSolveAll:          true,
	RespStatus:            true,
	RespRunningInfo:       true,
	RespClearRunningInfo:  true,
	RespClearHighlighting: true,
	RespHighlightingInfo:  true,
	RespDoneAborting:      true,
	RespDoneExiting:       true,
}

// ParseResponse decodes one JSON response line. A frame that is not valid
// JSON, or whose kind is unknown, yields a *ParseError.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimSpace(line)
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, &ParseError{Line: line, Err: err}
	}
	if !validResponseKinds[resp.Kind] {
		return Response{}, &ParseError{Line: line, Err: fmt.Errorf("unknown response kind %q", resp.Kind)}
	}
	return resp, nil
}
