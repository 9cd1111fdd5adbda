// Package view serves the editor's webview panel over a websocket and
// correlates view requests with their responses.
package view

import "github.com/choukh/agda-mode-vscode/internal/model"

// outboundFrame is one view request pushed to the panel. ID correlates the
// panel's answer.
type outboundFrame struct {
	ID          string                `json:"id"`
	Kind        model.ViewRequestKind `json:"kind"`
	Header      string                `json:"header,omitempty"`
	Body        string                `json:"body,omitempty"`
	Placeholder string                `json:"placeholder,omitempty"`
	Candidates  []string              `json:"candidates,omitempty"`
}

// inboundFrame is one message from the panel: either the answer to a
// request (ID set) or a lifecycle event (Event set).
type inboundFrame struct {
	ID          string `json:"id,omitempty"`
	Success     bool   `json:"success,omitempty"`
	Input       string `json:"input,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	Event       string `json:"event,omitempty"`
}
