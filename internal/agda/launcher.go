// Package agda manages the external Agda process and its response stream.
package agda

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/choukh/agda-mode-vscode/internal/model"
)

var versionRegex = regexp.MustCompile(`Agda version ([0-9][0-9.]*)`)

// Locate resolves the agda executable from the config, falling back to
// $PATH, and probes its version. A path from the config is returned as
// given; it is not made absolute.
func Locate(cfg model.AgdaConfig) (path, version string, err error) {
	path = cfg.Path
	if path == "" {
		path, err = exec.LookPath("agda")
		if err != nil {
			return "", "", &model.ConnError{Op: "locate", Err: fmt.Errorf("agda not found on $PATH: %w", err)}
		}
	}

	timeout := time.Duration(cfg.ConnectTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", "", &model.ConnError{Op: "version probe", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))}
	}

	m := versionRegex.FindStringSubmatch(string(out))
	if m == nil {
		return "", "", &model.ConnError{Op: "version probe", Err: fmt.Errorf("unrecognized output %q", strings.TrimSpace(string(out)))}
	}
	version = m[1]

	if cfg.Version != "" && !strings.HasPrefix(version, cfg.Version) {
		return "", "", &model.ConnError{
			Op:  "version check",
			Err: fmt.Errorf("agda %s found at %s, config pins %s", version, path, cfg.Version),
		}
	}
	return path, version, nil
}
