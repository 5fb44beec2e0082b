// Package pipeline runs the vault maintenance steps in order, fail-open.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/backup"
	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/notify"
)

// Step is one isolated unit of the pipeline. Fn returns a one-line detail for
// the summary. Returning an error wrapping ErrSkipped marks the step skipped.
type Step struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// ErrSkipped marks a step that was not configured or had nothing to do.
var ErrSkipped = errors.New("skipped")

// Skip returns an ErrSkipped error carrying reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// Summary is the outcome of one run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Executed []string      `json:"executed"`
	Skipped  []string      `json:"skipped"`
	Failed   []string      `json:"failed"`
	Details  []string      `json:"details"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether no step failed.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// Run executes steps sequentially. A failing or panicking step is recorded and
// the next step still runs. The summary is sent to n when it is non-nil.
func Run(ctx context.Context, steps []Step, n notify.Notifier, logger *slog.Logger) Summary {
	started := time.Now()
	sum := Summary{
		RunID:    uuid.NewString(),
		Executed: []string{},
		Skipped:  []string{},
		Failed:   []string{},
	}
	logger = logger.With(slog.String("run_id", sum.RunID))
	logger.Info("pipeline: started", slog.Int("steps", len(steps)))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			sum.Skipped = append(sum.Skipped, step.Name)
			continue
		}
		detail, err := runStep(ctx, step)
		switch {
		case err == nil:
			sum.Executed = append(sum.Executed, step.Name)
			logger.Info("pipeline: step done", slog.String("step", step.Name), slog.String("detail", detail))
		case errors.Is(err, ErrSkipped):
			sum.Skipped = append(sum.Skipped, step.Name)
			logger.Warn("pipeline: step skipped", slog.String("step", step.Name), slog.String("reason", err.Error()))
			detail = err.Error()
		default:
			sum.Failed = append(sum.Failed, step.Name)
			logger.Error("pipeline: step failed", slog.String("step", step.Name), slog.String("error", err.Error()))
			detail = err.Error()
		}
		if detail != "" {
			sum.Details = append(sum.Details, step.Name+": "+detail)
		}
	}
	sum.Duration = time.Since(started)

	if n != nil {
		n.Notify(ctx, notify.Payload{
			Title:       "Vault pipeline",
			Description: strings.Join(sum.Details, "\n"),
			Executed:    sum.Executed,
			Skipped:     sum.Skipped,
			Failed:      sum.Failed,
		})
	}
	logger.Info("pipeline: finished",
		slog.Int("executed", len(sum.Executed)),
		slog.Int("skipped", len(sum.Skipped)),
		slog.Int("failed", len(sum.Failed)),
		slog.Duration("duration", sum.Duration))
	return sum
}

func runStep(ctx context.Context, step Step) (detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Fn(ctx)
}

// HealthChecker produces a health report.
type HealthChecker interface {
	Health(ctx context.Context) (*graph.Report, error)
}

// IndexBuilder refreshes the embedding index.
type IndexBuilder interface {
	BuildIndex(ctx context.Context) (index.Stats, error)
}

// HealthStep reports the vault score.
func HealthStep(h HealthChecker) Step {
	return Step{Name: "health", Fn: func(ctx context.Context) (string, error) {
		r, err := h.Health(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("score %.0f/100 (%s), %d broken, %d orphans",
			r.Score, r.Grade(), len(r.BrokenLinks), len(r.Orphans)), nil
	}}
}

// IndexStep rebuilds the index incrementally. Missing credentials skip it.
func IndexStep(b IndexBuilder) Step {
	return Step{Name: "index", Fn: func(ctx context.Context) (string, error) {
		st, err := b.BuildIndex(ctx)
		if errors.Is(err, apperr.ErrConfigMissing) {
			return "", Skip("embedding provider not configured")
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d notes, %d embedded, %d reused, %d failed", st.Total, st.Updated, st.Reused, st.Failed), nil
	}}
}

// BackupStep syncs the vault with git. A nil client skips it.
func BackupStep(c backup.Client, logger *slog.Logger) Step {
	return Step{Name: "backup", Fn: func(ctx context.Context) (string, error) {
		if c == nil {
			return "", Skip("backup disabled")
		}
		res := backup.Run(ctx, c, logger)
		if !res.OK {
			return "", errors.New(res.Message)
		}
		return res.Message, nil
	}}
}
