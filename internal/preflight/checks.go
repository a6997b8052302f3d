package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"danmaku/internal/deps"
	"danmaku/internal/mpv"
)

const defaultSocketTimeout = 2 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckConverter verifies the danmu2ass binary resolves.
func CheckConverter(binary string) Result {
	return fromStatus(deps.Check(deps.Converter(binary)))
}

// CheckPlayerBinary reports whether mpv is installed. It never fails the run.
func CheckPlayerBinary() Result {
	return fromStatus(deps.Check(deps.Player()))
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	if status.Available {
		result.Detail = status.Path
	} else {
		result.Detail = status.Detail
	}
	return result
}

// CheckSocket dials the mpv IPC socket and asks the player for its version.
func CheckSocket(ctx context.Context, path string, timeout time.Duration) Result {
	const name = "mpv IPC socket"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; start mpv with --input-ipc-server)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a socket)", path)}
	}

	if timeout <= 0 {
		timeout = defaultSocketTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mpv.Dial(checkCtx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, summarizeDialError(err))}
	}
	defer client.Close()

	version, err := client.GetString(checkCtx, "mpv-version")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no reply: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, version)}
}

func summarizeDialError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "connect timed out"
	case errors.Is(err, unix.ECONNREFUSED), strings.Contains(err.Error(), "connection refused"):
		// mpvipc reports dial failures as text.
		return "connection refused; stale socket?"
	default:
		return err.Error()
	}
}
