package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const (
	unknownWindow      = "Unknown"
	windowTitleTimeout = 2 * time.Second
)

// commandOutput runs a short helper process and returns its trimmed
// stdout, or unknownWindow if it fails or hangs.
func commandOutput(name string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), windowTitleTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return unknownWindow
	}
	return strings.TrimSpace(out.String())
}
