// Package git runs the git binary on behalf of a vault.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client executes git commands in a working directory.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{WorkDir: workDir, Logger: logger}
}

// IsInstalled reports whether a git binary is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory and returns its trimmed output.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		name := "git"
		if len(args) > 0 {
			name = "git " + args[0]
		}
		return output, fmt.Errorf("%s failed: %w\nOutput: %s", name, err, output)
	}
	return output, nil
}

// IsRepo reports whether WorkDir has its own .git entry.
func (c *Client) IsRepo() bool {
	_, err := os.Stat(filepath.Join(c.WorkDir, ".git"))
	return err == nil
}

// Init creates a repository in WorkDir unless one already exists.
func (c *Client) Init(ctx context.Context) error {
	if c.IsRepo() {
		return nil
	}
	_, err := c.Run(ctx, "init")
	return err
}
