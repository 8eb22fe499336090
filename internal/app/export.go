package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jwulff/voicenotes/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/shlex"
)

const openCommandTimeout = 10 * time.Second

// exportCmd writes the transcript file, then hands the path to the
// configured open command if there is one.
func exportCmd(dir, text string, now time.Time, openCommand string) tea.Cmd {
	return func() tea.Msg {
		path, err := transcript.Export(dir, text, now)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		msg := ExportedMsg{Path: path}
		if strings.TrimSpace(openCommand) != "" {
			ctx, cancel := context.WithTimeout(context.Background(), openCommandTimeout)
			defer cancel()
			msg.Output, msg.OpenErr = runOpenCommand(ctx, openCommand, path)
		}
		return msg
	}
}

// runOpenCommand splits command shell-style and runs it with path appended.
func runOpenCommand(ctx context.Context, command, path string) (string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return "", fmt.Errorf("parse open command: %w", err)
	}
	if len(args) == 0 {
		return "", nil
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), "VOICENOTES_FILE="+path)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("open command failed: %w", err)
	}
	return output, nil
}
