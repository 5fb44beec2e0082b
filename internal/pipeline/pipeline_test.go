package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/backup"
	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/notify"
	"github.com/starford/vaultlens/internal/testutil"
)

type recorder struct {
	payloads []notify.Payload
}

func (r *recorder) Notify(_ context.Context, p notify.Payload) bool {
	r.payloads = append(r.payloads, p)
	return true
}

func ok(name string) Step {
	return Step{Name: name, Fn: func(context.Context) (string, error) { return "done", nil }}
}

func TestRun_FailOpen(t *testing.T) {
	var ran []string
	steps := []Step{
		{Name: "boom", Fn: func(context.Context) (string, error) { panic("kaput") }},
		{Name: "broken", Fn: func(context.Context) (string, error) { return "", errors.New("nope") }},
		{Name: "idle", Fn: func(context.Context) (string, error) { return "", Skip("nothing to do") }},
		{Name: "last", Fn: func(context.Context) (string, error) { ran = append(ran, "last"); return "fine", nil }},
	}
	rec := &recorder{}
	sum := Run(context.Background(), steps, rec, testutil.Logger())

	if len(ran) != 1 {
		t.Fatal("step after failures did not run")
	}
	if got := strings.Join(sum.Failed, ","); got != "boom,broken" {
		t.Errorf("Failed = %q", got)
	}
	if got := strings.Join(sum.Skipped, ","); got != "idle" {
		t.Errorf("Skipped = %q", got)
	}
	if got := strings.Join(sum.Executed, ","); got != "last" {
		t.Errorf("Executed = %q", got)
	}
	if sum.OK() {
		t.Error("OK() = true with failures")
	}
	if _, err := uuid.Parse(sum.RunID); err != nil {
		t.Errorf("RunID %q: %v", sum.RunID, err)
	}
	if len(rec.payloads) != 1 {
		t.Fatalf("notifications = %d, want 1", len(rec.payloads))
	}
	p := rec.payloads[0]
	if !strings.Contains(p.Description, "boom: panic: kaput") || !strings.Contains(p.Description, "last: fine") {
		t.Errorf("description = %q", p.Description)
	}
}

func TestRun_CancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		{Name: "first", Fn: func(context.Context) (string, error) { cancel(); return "", nil }},
		ok("second"),
	}
	sum := Run(ctx, steps, nil, testutil.Logger())
	if len(sum.Executed) != 1 || len(sum.Skipped) != 1 || sum.Skipped[0] != "second" {
		t.Errorf("summary = %+v", sum)
	}
}

type fakeVault struct {
	report   *graph.Report
	buildErr error
}

func (f fakeVault) Health(context.Context) (*graph.Report, error) { return f.report, nil }

func (f fakeVault) BuildIndex(context.Context) (index.Stats, error) {
	return index.Stats{Total: 3, Updated: 1, Reused: 2}, f.buildErr
}

type fakeBackup struct{ pushOK bool }

func (fakeBackup) Pull(context.Context) backup.Result { return backup.Result{OK: true} }

func (fakeBackup) CommitAll(context.Context, string) backup.Result {
	return backup.Result{OK: true, Message: "vault: auto-backup"}
}

func (f fakeBackup) Push(context.Context) backup.Result {
	return backup.Result{OK: f.pushOK, Message: "rejected"}
}

func TestDefaultSteps(t *testing.T) {
	v := fakeVault{report: &graph.Report{TotalNotes: 4, Score: 95}, buildErr: apperr.ErrConfigMissing}
	steps := []Step{HealthStep(v), IndexStep(v), BackupStep(fakeBackup{pushOK: false}, testutil.Logger())}

	sum := Run(context.Background(), steps, nil, testutil.Logger())

	if strings.Join(sum.Executed, ",") != "health" {
		t.Errorf("Executed = %v", sum.Executed)
	}
	if strings.Join(sum.Skipped, ",") != "index" {
		t.Errorf("Skipped = %v", sum.Skipped)
	}
	if strings.Join(sum.Failed, ",") != "backup" {
		t.Errorf("Failed = %v", sum.Failed)
	}
	if !strings.Contains(sum.Details[0], "score 95/100 (excellent)") {
		t.Errorf("health detail = %q", sum.Details[0])
	}
}

func TestBackupStep_Disabled(t *testing.T) {
	_, err := BackupStep(nil, testutil.Logger()).Fn(context.Background())
	if !errors.Is(err, ErrSkipped) {
		t.Errorf("err = %v, want ErrSkipped", err)
	}
}

func TestIndexStep_Stats(t *testing.T) {
	detail, err := IndexStep(fakeVault{}).Fn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if detail != "3 notes, 1 embedded, 2 reused, 0 failed" {
		t.Errorf("detail = %q", detail)
	}
}
