// Package backup commits and pushes vault changes to version control.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoChanges is the message of a successful CommitAll with nothing to commit.
const NoChanges = "no changes"

// Result is the outcome of one version-control operation.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Client is a best-effort version-control client. Failures are reported in
// the Result, never as panics or errors.
type Client interface {
	Pull(ctx context.Context) Result
	CommitAll(ctx context.Context, message string) Result
	Push(ctx context.Context) Result
}

// CommitMessage returns the auto-backup commit message for n changed files.
func CommitMessage(now time.Time, n int) string {
	return fmt.Sprintf("vault: auto-backup %s (%d files)", now.Format("2006-01-02 15:04"), n)
}

// Run pulls, commits everything and pushes. A failed pull is logged and the
// backup continues; a failed commit stops before pushing.
func Run(ctx context.Context, c Client, logger *slog.Logger) Result {
	if res := c.Pull(ctx); res.OK {
		logger.Info("backup: pulled", slog.String("output", res.Message))
	} else {
		logger.Warn("backup: pull failed", slog.String("error", res.Message))
	}

	res := c.CommitAll(ctx, "")
	if !res.OK {
		logger.Warn("backup: commit failed", slog.String("error", res.Message))
		return res
	}
	if res.Message == NoChanges {
		logger.Info("backup: nothing to commit")
		return res
	}
	logger.Info("backup: committed", slog.String("message", res.Message))

	if push := c.Push(ctx); !push.OK {
		logger.Warn("backup: push failed", slog.String("error", push.Message))
		return Result{OK: false, Message: "committed but push failed: " + push.Message}
	}
	logger.Info("backup: pushed")
	return res
}
