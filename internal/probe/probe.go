// Package probe defines the contracts with the OS-level helpers: the
// active-window probe and the accessibility-permission probe.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// WindowSample is one reading of the focused window. A nil sample with a
// nil error means the probe had nothing to report (no focused window);
// callers must not treat that as a failure.
type WindowSample struct {
	Title string `json:"title"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
}

// Empty reports whether the sample carries no usable observation.
func (s *WindowSample) Empty() bool {
	return s == nil || s.Title == "" || s.Owner.Name == ""
}

// WindowProbe samples the currently focused window. Implementations may be
// slow or hang; callers bound each call with a context deadline.
type WindowProbe interface {
	Sample(ctx context.Context) (*WindowSample, error)
}

// PermissionProbe answers whether the OS permission required for window
// observation is granted.
type PermissionProbe interface {
	Granted(ctx context.Context) (bool, error)
}

// HelperProbe shells out to the platform helper binary. The helper prints a
// single JSON object on stdout: `{"title":...,"owner":{"name":...}}` (or
// `null` when nothing is focused) for the sample subcommand, and
// `{"granted":bool}` for the permission subcommand.
type HelperProbe struct {
	command string
	args    []string
}

func NewHelperProbe(command string) *HelperProbe {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return &HelperProbe{}
	}
	return &HelperProbe{command: parts[0], args: parts[1:]}
}

func (p *HelperProbe) run(ctx context.Context, subcommand string) ([]byte, error) {
	if p.command == "" {
		return nil, fmt.Errorf("no probe command configured")
	}

	args := append(append([]string{}, p.args...), subcommand)
	cmd := exec.CommandContext(ctx, p.command, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", subcommand, err)
	}
	return bytes.TrimSpace(stdout.Bytes()), nil
}

func (p *HelperProbe) Sample(ctx context.Context) (*WindowSample, error) {
	out, err := p.run(ctx, "sample")
	if err != nil {
		return nil, err
	}
	return ParseSample(out)
}

func (p *HelperProbe) Granted(ctx context.Context) (bool, error) {
	out, err := p.run(ctx, "permission")
	if err != nil {
		return false, err
	}

	var result struct {
		Granted bool `json:"granted"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return false, fmt.Errorf("parse permission output: %w", err)
	}
	return result.Granted, nil
}

// ParseSample decodes helper output into a sample. Empty output or a JSON
// null means no reading.
func ParseSample(out []byte) (*WindowSample, error) {
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return nil, nil
	}

	var sample WindowSample
	if err := json.Unmarshal(out, &sample); err != nil {
		return nil, fmt.Errorf("parse sample output: %w", err)
	}
	return &sample, nil
}
