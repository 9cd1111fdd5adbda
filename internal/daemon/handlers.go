package daemon

import (
	"encoding/json"
	"os"

	"github.com/choukh/agda-mode-vscode/internal/model"
	"github.com/choukh/agda-mode-vscode/internal/uds"
)

// handleDispatch validates an editor command and feeds it to the
// dispatcher. Critical commands (escape, input method) are logged as such;
// lane placement itself is the dispatcher's contract.
func (d *Daemon) handleDispatch(req *uds.Request) *uds.Response {
	var cmd model.Command
	if err := json.Unmarshal(req.Params, &cmd); err != nil {
		return uds.ErrorResponse(uds.ErrCodeValidation, "malformed command: "+err.Error())
	}
	if err := cmd.Validate(); err != nil {
		return uds.ErrorResponse(uds.ErrCodeValidation, err.Error())
	}

	if model.IsCritical(cmd) {
		d.log(LogLevelDebug, "dispatch critical command=%s", cmd.Kind)
	} else {
		d.log(LogLevelDebug, "dispatch command=%s file=%s", cmd.Kind, cmd.FilePath)
	}
	d.disp.DispatchCommand(cmd)

	return uds.SuccessResponse(map[string]string{"status": "dispatched"})
}

// handleStatus reports the daemon's view of the world: lanes, Agda, view.
func (d *Daemon) handleStatus(req *uds.Request) *uds.Response {
	critical, blocking := d.disp.Snapshot()
	return uds.SuccessResponse(map[string]any{
		"pid":           os.Getpid(),
		"agda_version":  d.sess.AgdaVersion(),
		"critical_lane": critical,
		"blocking_lane": blocking,
		"view_attached": d.viewServer.Attached(),
	})
}
