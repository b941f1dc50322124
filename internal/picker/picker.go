// Package picker hands candidate listings to an external fuzzy finder.
package picker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/search"
)

// DefaultCommand is the picker used when none is configured.
const DefaultCommand = "fzf"

// Exit statuses fzf uses for "no match" and "interrupted".
const (
	exitNoMatch     = 1
	exitInterrupted = 130
)

// Choose runs command with one display string per line on stdin and returns
// the key of the line it prints. A cancelled selection returns an error
// matching ErrNoSelection.
func Choose(ctx context.Context, command string, candidates []search.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", noSelection("nothing to choose from")
	}
	argv := strings.Fields(command)
	if len(argv) == 0 {
		argv = []string{DefaultCommand}
	}

	var in bytes.Buffer
	for _, c := range candidates {
		in.WriteString(c.Display)
		in.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = &in
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case exitNoMatch, exitInterrupted:
				return "", noSelection("selection cancelled")
			}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", vonerrors.ConfigError(fmt.Sprintf("picker %q not found", argv[0]), err).
				WithSuggestion("Install fzf or set 'picker' in the config")
		}
		return "", vonerrors.IOError(fmt.Sprintf("picker %q failed", argv[0]), err)
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return "", noSelection("selection cancelled")
	}
	key := search.KeyFromDisplay(sc.Text())
	if key == "" {
		return "", noSelection("selection cancelled")
	}

	slog.Debug("picker_selected", slog.String("command", argv[0]), slog.String("key", key))
	return key, nil
}

func noSelection(msg string) error {
	return vonerrors.New(vonerrors.ErrCodeNoSelection, msg, nil)
}
