// Package rebuild runs the external network compiler over a patched
// network file.
package rebuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
)

// ErrRebuildFailed is returned when the compiler fails or cannot be run.
var ErrRebuildFailed = errors.New("rebuild failed")

// DefaultPath is the compiler looked up on PATH when none is given.
const DefaultPath = "netconvert"

// Result describes one compiler run.
type Result struct {
	OK       bool          `json:"ok"`
	Command  []string      `json:"command"`
	Output   string        `json:"output"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Netconvert runs `<Path> -s <input> -o <output>`.
type Netconvert struct {
	Path    string
	Timeout time.Duration // 0 means no limit beyond the caller's context
	logger  logging.Logger
}

// New creates a runner. An empty path uses DefaultPath.
func New(path string, timeout time.Duration, logger logging.Logger) *Netconvert {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Netconvert{Path: path, Timeout: timeout, logger: logger.With(logging.Component("rebuild"))}
}

// Rebuild compiles input into output. On failure the result carries the
// captured stderr and the error wraps ErrRebuildFailed.
func (nc *Netconvert) Rebuild(ctx context.Context, input, output string) (Result, error) {
	res := Result{Command: []string{nc.Path, "-s", input, "-o", output}, Output: output, ExitCode: -1}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return res, fmt.Errorf("%w: create output dir: %v", ErrRebuildFailed, err)
	}

	if nc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nc.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, nc.Path, "-s", input, "-o", output)
	cmd.Stderr = &stderr

	timer := logging.StartTimer(nc.logger, "netconvert", logging.Path(output))
	err := cmd.Run()
	if err != nil {
		res.Duration = timer.EndError(err)
	} else {
		res.Duration = timer.End()
	}
	res.Stderr = strings.TrimSpace(stderr.String())
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		nc.logger.Error("netconvert failed",
			logging.Error(err),
			logging.String("stderr", res.Stderr),
			logging.Int("exit_code", res.ExitCode))
		if errors.Is(err, exec.ErrNotFound) {
			nc.logger.Warn("netconvert not found; set --netconvert to its full path")
		}
		return res, fmt.Errorf("%w: %s: %v", ErrRebuildFailed, nc.Path, err)
	}

	res.OK = true
	nc.logger.Info("rebuilt network", logging.Path(output))
	return res, nil
}
