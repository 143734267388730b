package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/john-shalamon/exam-hall-system/internal/common"
)

// Runner executes an external tool (tesseract, an image converter) and
// returns what it wrote. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// maxStderrLog caps how much of a failing tool's stderr reaches the log.
const maxStderrLog = 4 << 10

// CommandError reports a tool that exited unsuccessfully.
type CommandError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	logger *slog.Logger
	// killGrace bounds how long a cancelled tool may keep its pipes open.
	killGrace time.Duration
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := common.LoggerFrom(ctx, r.logger)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.killGrace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		tail := lastBytes(strings.TrimSpace(stderr.String()), maxStderrLog)
		logger.Error("ocr.exec.failed", "tool", name, "argc", len(args), "elapsed_ms", elapsed, "stderr", tail, "error", err)
		return stdout.Bytes(), stderr.Bytes(), &CommandError{Tool: name, Stderr: tail, Err: err}
	}
	logger.Debug("ocr.exec.ok", "tool", name, "argc", len(args), "elapsed_ms", elapsed, "stdout_bytes", stdout.Len())
	return stdout.Bytes(), stderr.Bytes(), nil
}

// lastBytes keeps the end of s, where tools usually print the actual failure.
func lastBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
