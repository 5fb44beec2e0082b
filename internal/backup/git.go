package backup

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 30 * time.Second

// Git implements Client with the git CLI.
type Git struct {
	dir     string
	remote  string
	timeout time.Duration
	now     func() time.Time
}

// NewGit creates a client for the repository at dir. An empty remote uses
// the branch's upstream.
func NewGit(dir, remote string, timeout time.Duration) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Git{dir: dir, remote: remote, timeout: timeout, now: time.Now}
}

// IsRepo reports whether the directory has a .git entry.
func (g *Git) IsRepo() bool {
	_, err := os.Stat(filepath.Join(g.dir, ".git"))
	return err == nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	out, err := cmd.CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return msg, errors.New("git " + args[0] + ": timed out")
		}
		if msg == "" {
			msg = err.Error()
		}
		return msg, errors.New(msg)
	}
	return msg, nil
}

func (g *Git) notRepo() Result {
	return Result{OK: false, Message: "not a git repository: " + g.dir}
}

// Pull implements Client.
func (g *Git) Pull(ctx context.Context) Result {
	if !g.IsRepo() {
		return g.notRepo()
	}
	args := []string{"pull", "--rebase", "--autostash"}
	if g.remote != "" {
		args = append(args, g.remote)
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	if out == "" {
		out = "up to date"
	}
	return Result{OK: true, Message: out}
}

// Changes returns the number of changed paths reported by git status.
func (g *Git) Changes(ctx context.Context) (int, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return 0, err
	}
	n := 0
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, nil
}

// CommitAll stages and commits every change. An empty message is replaced by
// CommitMessage for the current time.
func (g *Git) CommitAll(ctx context.Context, message string) Result {
	if !g.IsRepo() {
		return g.notRepo()
	}
	n, err := g.Changes(ctx)
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	if n == 0 {
		return Result{OK: true, Message: NoChanges}
	}
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	if message == "" {
		message = CommitMessage(g.now(), n)
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	return Result{OK: true, Message: message}
}

// Push implements Client.
func (g *Git) Push(ctx context.Context) Result {
	if !g.IsRepo() {
		return g.notRepo()
	}
	args := []string{"push"}
	if g.remote != "" {
		args = append(args, g.remote)
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	return Result{OK: true, Message: out}
}
