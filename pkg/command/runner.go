package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single external command when the caller does not
// specify one.
const DefaultTimeout = 600 * time.Second

// Result captures the outcome of one external command invocation.
type Result struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Command  string `json:"command"`
}

// Options controls where and how a command runs. Dir is always explicit; the
// runner never touches the process working directory.
type Options struct {
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Runner executes external commands with captured output and a hard timeout.
// A failed or timed-out command produces a failure Result, never an error.
type Runner struct {
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewRunner(timeout time.Duration, logger *zap.SugaredLogger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{timeout: timeout, logger: logger}
}

// Run executes the command string and waits for it to finish. The timeout in
// opts (falling back to the runner default) converts a hung command into a
// failure Result with exit code -1.
func (r *Runner) Run(ctx context.Context, commandLine string, opts Options) Result {
	r.logger.Infow("executing command", "command", commandLine, "dir", opts.Dir)

	args, err := shellwords.Parse(commandLine)
	if err != nil || len(args) == 0 {
		return Result{
			Success:  false,
			ExitCode: -1,
			Stderr:   fmt.Sprintf("cannot parse command: %v", err),
			Command:  commandLine,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = opts.Dir

	if len(opts.Env) > 0 {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Command: commandLine,
	}

	switch {
	case runErr == nil:
		result.Success = true
		result.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("command timed out after %.0f seconds", timeout.Seconds())
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Stderr = runErr.Error()
		}
	}

	if !result.Success {
		r.logger.Warnw("command failed", "command", commandLine, "exit_code", result.ExitCode)
	}
	return result
}
