package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/choukh/agda-mode-vscode/internal/daemon"
	"github.com/choukh/agda-mode-vscode/internal/model"
	"github.com/choukh/agda-mode-vscode/internal/setup"
	"github.com/choukh/agda-mode-vscode/internal/status"
	"github.com/choukh/agda-mode-vscode/internal/uds"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon(os.Args[2:])
	case "setup":
		runSetup(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "cmd":
		runCmd(os.Args[2:])
	case "ping":
		runPing(os.Args[2:])
	case "shutdown":
		runShutdown(os.Args[2:])
	case "version":
		fmt.Printf("agdad %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runDaemon(_ []string) {
	baseDir := mustBaseDir()

	cfg, err := setup.LoadConfig(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	d, err := daemon.New(baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create daemon: %v\n", err)
		os.Exit(1)
	}
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
		os.Exit(1)
	}
}

func runSetup(_ []string) {
	baseDir, err := setup.BaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		os.Exit(1)
	}
	if err := setup.Run(baseDir); err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Initialized %s\n", baseDir)
}

func runStatus(args []string) {
	jsonOutput := false
	for _, a := range args {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: agdad status [--json]\n", a)
			os.Exit(1)
		}
	}

	if err := status.Run(mustBaseDir(), jsonOutput); err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		os.Exit(1)
	}
}

// runCmd dispatches one editor command to the running daemon. This is the
// surface the editor integration drives; it is also handy for poking the
// pipeline from a shell.
func runCmd(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: agdad cmd <kind> [--file <path>] [--goal <index>] [--text <s>]")
		os.Exit(1)
	}

	cmd := model.Command{Kind: model.CommandKind(args[0])}
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		flag := rest[i]
		if i+1 >= len(rest) {
			fmt.Fprintf(os.Stderr, "flag %s needs a value\n", flag)
			os.Exit(1)
		}
		val := rest[i+1]
		i++
		switch flag {
		case "--file":
			abs, err := filepath.Abs(val)
			if err != nil {
				fmt.Fprintf(os.Stderr, "resolve %s: %v\n", val, err)
				os.Exit(1)
			}
			cmd.FilePath = abs
		case "--goal":
			n, err := strconv.Atoi(val)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad goal index %q\n", val)
				os.Exit(1)
			}
			cmd.GoalIndex = n
		case "--text":
			cmd.Text = val
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", flag)
			os.Exit(1)
		}
	}

	if err := cmd.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cmd: %v\n", err)
		os.Exit(1)
	}

	resp := send(uds.CmdDispatch, cmd)
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "dispatch failed: %s\n", resp.Error.Message)
		os.Exit(1)
	}
	fmt.Println("dispatched")
}

func runPing(_ []string) {
	resp := send(uds.CmdPing, nil)
	if !resp.Success {
		fmt.Fprintln(os.Stderr, "daemon not responding")
		os.Exit(1)
	}
	fmt.Println("pong")
}

func runShutdown(_ []string) {
	resp := send(uds.CmdShutdown, nil)
	if !resp.Success {
		fmt.Fprintln(os.Stderr, "shutdown request failed")
		os.Exit(1)
	}
	var data map[string]string
	_ = json.Unmarshal(resp.Data, &data)
	fmt.Println("shutdown", data["status"])
}

func send(command string, params any) *uds.Response {
	client := uds.NewClient(filepath.Join(mustBaseDir(), uds.DefaultSocketName))
	resp, err := client.SendCommand(command, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return resp
}

func mustBaseDir() string {
	baseDir, err := setup.BaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve base dir: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stat(baseDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s not found. Run 'agdad setup' first.\n", baseDir)
		os.Exit(1)
	}
	return baseDir
}

func printUsage() {
	fmt.Println(`agdad - Agda interaction daemon

Usage:
  agdad setup                                          initialize ~/.agdad
  agdad daemon                                         run the daemon in the foreground
  agdad status [--json]                                show daemon and lane status
  agdad cmd <kind> [--file f] [--goal n] [--text s]    dispatch an editor command
  agdad ping                                           check daemon liveness
  agdad shutdown                                       stop the daemon
  agdad version                                        print version`)
}
