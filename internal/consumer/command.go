package consumer

import (
	"context"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/source"
)

// Placeholder is replaced by the claimed file's path in command arguments.
const Placeholder = "{}"

const (
	// maxOutput bounds how much command output is kept in an error.
	maxOutput = 4096
	// waitDelay bounds how long a killed command's children may hold its
	// output pipes open.
	waitDelay = time.Second
)

// Command runs an external program for every claimed file.
type Command struct {
	argv    []string
	timeout time.Duration
	logger  logging.Logger
}

// NewCommand creates a Command consumer. Any argument equal to or containing
// "{}" has it replaced by the path; without a placeholder the path is
// appended as the last argument. A zero timeout means none.
func NewCommand(argv []string, timeout time.Duration, logger logging.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.NewConfigError("command consumer requires a program")
	}
	if timeout < 0 {
		return nil, errors.NewConfigError("command timeout must not be negative")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Command{
		argv:    append([]string(nil), argv...),
		timeout: timeout,
		logger:  logger.WithComponent("consumer"),
	}, nil
}

// Args returns the argument vector used for path.
func (c *Command) Args(path string) []string {
	args := make([]string, 0, len(c.argv)+1)
	replaced := false
	for _, arg := range c.argv {
		if strings.Contains(arg, Placeholder) {
			arg = strings.ReplaceAll(arg, Placeholder, path)
			replaced = true
		}
		args = append(args, arg)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

// Consume implements source.Consumer.
func (c *Command) Consume(ctx context.Context, d *source.Delivery) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.Args(d.Path)
	op := logging.StartOperation(c.logger, "command")
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = waitDelay
	output, err := cmd.CombinedOutput()
	if err != nil {
		op.EndWithError(ctx, err, "path", d.Path)
		return errors.NewIOError(errors.CodeConsumeFailed, "command failed", err).
			WithOp("command").
			WithPath(d.Path).
			WithContext("program", args[0]).
			WithContext("output", truncate(string(output), maxOutput))
	}

	op.End(ctx, "path", d.Path, "output_bytes", len(output))
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
