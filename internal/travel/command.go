package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/transportresilience/rdr/internal/types"
)

// commandRequest is written to the travel model's stdin
type commandRequest struct {
	types.SnapshotKey
	YearType types.YearType `json:"year_type"`
}

// commandResponse is read from the travel model's stdout. A response with
// found set to false means the model has no result for the key.
type commandResponse struct {
	Found *bool                        `json:"found,omitempty"`
	Modes map[string]types.ModeMetrics `json:"modes"`
}

// CommandRunner invokes an external travel model once per snapshot
type CommandRunner struct {
	Command []string
	Timeout time.Duration
}

// Snapshot runs the command with the key as JSON on stdin and decodes the
// snapshot from stdout.
func (c *CommandRunner) Snapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	if len(c.Command) == 0 {
		return types.Snapshot{}, fmt.Errorf("travel command not configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := json.Marshal(commandRequest{SnapshotKey: key, YearType: yt})
	if err != nil {
		return types.Snapshot{}, err
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdin = bytes.NewReader(req)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return types.Snapshot{}, fmt.Errorf("travel command for %s (%s): %w: %s", key, yt, err, strings.TrimSpace(stderr.String()))
	}

	var resp commandResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return types.Snapshot{}, fmt.Errorf("travel command for %s (%s): decoding output: %w", key, yt, err)
	}
	if resp.Found != nil && !*resp.Found {
		return types.Snapshot{}, NotFound(key, yt)
	}

	snap := types.Snapshot{Key: key, YearType: yt, Modes: make(map[types.Mode]types.ModeMetrics, len(resp.Modes))}
	for name, m := range resp.Modes {
		mode, err := types.ParseMode(name)
		if err != nil {
			return types.Snapshot{}, fmt.Errorf("travel command for %s (%s): %w", key, yt, err)
		}
		snap.Modes[mode] = snap.Modes[mode].Add(m)
	}
	return snap, nil
}
