package danmu2ass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"danmaku/internal/services"
)

// ErrStart marks an executor failure that happened before the process ran.
var ErrStart = errors.New("start converter")

// Output is the captured result of one process run.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Executor abstracts command execution for testability. Implementations wrap
// failures to launch the process with ErrStart and return the process exit
// error otherwise.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Output, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithExtraArgs adds flags placed before the managed arguments.
func WithExtraArgs(args ...string) Option {
	return func(c *Client) {
		c.extraArgs = append([]string(nil), args...)
	}
}

// WithTimeout overrides the per-run time limit. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// Client wraps danmu2ass invocations.
type Client struct {
	binary    string
	extraArgs []string
	timeout   time.Duration
	exec      Executor
}

// Result is a successful conversion.
type Result struct {
	Subtitle   []byte
	Diagnostic string
	Duration   time.Duration
}

// New constructs a danmu2ass client. timeoutSeconds of zero disables the limit.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("danmu2ass binary required")
	}
	if timeoutSeconds < 0 {
		return nil, fmt.Errorf("danmu2ass timeout must not be negative, got %d", timeoutSeconds)
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Args returns the full argument list used for target.
func (c *Client) Args(target string) []string {
	args := make([]string, 0, len(c.extraArgs)+4)
	args = append(args, c.extraArgs...)
	return append(args, "--no-web", "-o", "-", target)
}

// Convert runs the converter and returns only the subtitle bytes.
func (c *Client) Convert(ctx context.Context, target string) ([]byte, error) {
	result, err := c.Run(ctx, target)
	if err != nil {
		return nil, err
	}
	return result.Subtitle, nil
}

// Run executes the converter against target.
func (c *Client) Run(ctx context.Context, target string) (Result, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Result{}, services.Wrap(services.ErrValidation, "convert", "danmu2ass", "target required", nil)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	out, err := c.exec.Run(runCtx, c.binary, c.Args(target))
	elapsed := time.Since(started)
	diagnostic := strings.TrimSpace(string(out.Stderr))
	if err == nil {
		return Result{Subtitle: out.Stdout, Diagnostic: diagnostic, Duration: elapsed}, nil
	}

	convErr := &ConversionError{
		Target:     target,
		Output:     out.Stdout,
		Diagnostic: diagnostic,
		ExitCode:   -1,
		Err:        err,
	}
	marker := services.ErrExternalTool
	switch {
	case errors.Is(err, ErrStart):
		convErr.Kind = KindSpawnFailed
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		convErr.Kind = KindTimedOut
		convErr.Err = fmt.Errorf("%w after %s", context.DeadlineExceeded, c.timeout)
		marker = services.ErrTimeout
	case ctx.Err() != nil:
		convErr.Kind = KindCanceled
		convErr.Err = ctx.Err()
		marker = services.ErrTransient
	default:
		convErr.Kind = KindToolFailed
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			convErr.ExitCode = exitErr.ExitCode()
		}
	}
	return Result{Diagnostic: diagnostic, Duration: elapsed}, services.Wrap(marker, "convert", "danmu2ass", convErr.Kind.String(), convErr)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	if err := cmd.Start(); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrStart, err)
	}
	err := cmd.Wait()
	return Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err
}
