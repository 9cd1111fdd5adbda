// Package notify provides desktop notification support. agdad uses it to
// surface proof errors that arrive while no view panel is attached.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Send sends a desktop notification. On macOS it goes through osascript;
// elsewhere it is a silent no-op so callers need not branch per platform.
func Send(title, message string) error {
	if runtime.GOOS != "darwin" {
		return nil
	}
	title = escapeAppleScript(title)
	message = escapeAppleScript(message)

	script := fmt.Sprintf(
		`display notification %q with title %q sound name "default"`,
		message, title,
	)

	cmd := exec.Command("osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
