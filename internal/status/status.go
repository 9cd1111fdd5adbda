// Package status implements the `agdad status` query.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/choukh/agda-mode-vscode/internal/uds"
)

// Info is the daemon's status report.
type Info struct {
	Running      bool   `json:"running"`
	Pid          int    `json:"pid,omitempty"`
	AgdaVersion  string `json:"agda_version,omitempty"`
	CriticalLane string `json:"critical_lane,omitempty"`
	BlockingLane string `json:"blocking_lane,omitempty"`
	ViewAttached bool   `json:"view_attached,omitempty"`
}

// Run queries the daemon and prints its status.
func Run(baseDir string, jsonOutput bool) error {
	info := query(baseDir)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printInfo(info)
	return nil
}

func query(baseDir string) Info {
	client := uds.NewClient(filepath.Join(baseDir, uds.DefaultSocketName))
	resp, err := client.SendCommand(uds.CmdStatus, nil)
	if err != nil || !resp.Success {
		return Info{Running: false}
	}

	var info Info
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return Info{Running: false}
	}
	info.Running = true
	return info
}

func printInfo(info Info) {
	if !info.Running {
		fmt.Println("daemon: not running")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "daemon: running (pid %d)\n", info.Pid)
	if info.AgdaVersion != "" {
		fmt.Fprintf(&b, "agda: %s\n", info.AgdaVersion)
	} else {
		fmt.Fprintf(&b, "agda: not connected\n")
	}
	fmt.Fprintf(&b, "view: attached=%v\n", info.ViewAttached)
	fmt.Fprintf(&b, "critical lane: %s\n", info.CriticalLane)
	fmt.Fprintf(&b, "blocking lane: %s\n", info.BlockingLane)
	fmt.Print(b.String())
}
