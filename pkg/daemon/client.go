package daemon

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Client exposes the daemon's control operations over a Runner.
type Client struct {
	runner Runner
}

// NewClient wraps a runner with the daemon's command vocabulary.
func NewClient(r Runner) *Client {
	return &Client{runner: r}
}

// Status fetches the daemon's structured status document.
func (c *Client) Status(ctx context.Context) ([]byte, error) {
	res, err := c.runner.Run(ctx, "status", "--json")
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

// Up asks the daemon to connect. When authentication is pending the daemon
// blocks waiting on the browser flow, so callers should expect a
// TimeoutError here to mean "auth in progress", not failure.
func (c *Client) Up(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "up")
	return err
}

// Down disconnects the daemon from the mesh.
func (c *Client) Down(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "down")
	return err
}

// SwitchProfile asks the daemon to switch to the named saved account.
func (c *Client) SwitchProfile(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx, "switch", name)
	return err
}

// SetExitNode routes all outbound traffic through the given device. An empty
// id clears the exit node and restores direct connections.
func (c *Client) SetExitNode(ctx context.Context, id string) error {
	_, err := c.runner.Run(ctx, "set", "--exit-node="+id)
	return err
}

// Version probes the CLI binary, classifying an absent installation.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// IsAccessDenied reports whether an error looks like the daemon rejecting the
// caller for lack of operator permission.
func IsAccessDenied(err error) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	msg := strings.ToLower(exitErr.Stderr)
	return strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "operator")
}

// OperatorHint returns the remediation command for access-denied failures.
func OperatorHint() string {
	user := os.Getenv("USER")
	if user == "" {
		user = "$USER"
	}
	return "sudo tailscale set --operator=" + user
}
