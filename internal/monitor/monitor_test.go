package monitor

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/syncer"
)

func sampleResult() syncer.Result {
	return syncer.Result{
		Processed: 3,
		Created:   1,
		Skipped:   1,
		Failed:    1,
		Outcomes: []syncer.Outcome{
			{Name: "A", Category: bundle.CategoryKubernetes, Action: syncer.ActionSkipped},
			{Name: "B", Category: bundle.CategoryDocker, Action: syncer.ActionCreated, PolicyID: "id-1"},
			{Name: "C", Category: bundle.CategoryRuntime, Action: syncer.ActionFailed, Error: "boom"},
		},
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(syncer.Result{Processed: 2, Created: 1, Skipped: 1}); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := ExitCode(syncer.Result{Processed: 2, Skipped: 1, Failed: 1}); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := ExitCode(syncer.Result{}); got != 0 {
		t.Errorf("expected 0 for empty run, got %d", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult(), 1); err != nil {
		t.Fatal(err)
	}

	var out SyncOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ExitCode != 1 {
		t.Errorf("expected exitCode 1, got %d", out.ExitCode)
	}
	if out.Result.Processed != 3 || len(out.Result.Outcomes) != 3 {
		t.Errorf("unexpected result %+v", out.Result)
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleResult())
	for _, want := range []string{"created", "skipped", "failed", "processed: 3", "B", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q:\n%s", want, out)
		}
	}
}

func TestSummaryDryRun(t *testing.T) {
	res := syncer.Result{
		DryRun:    true,
		Processed: 1,
		Created:   1,
		Outcomes:  []syncer.Outcome{{Name: "A", Category: bundle.CategoryKubernetes, Action: syncer.ActionCreated}},
	}
	out := Summary(res)
	if !strings.Contains(out, "dry run") || !strings.Contains(out, "would create") {
		t.Errorf("expected dry-run wording:\n%s", out)
	}
}

func TestTUIModelFilter(t *testing.T) {
	b := &bundle.Bundle{
		Kubernetes: []bundle.Policy{{Name: "CIS 5.1.1", Category: bundle.CategoryKubernetes, Severity: "HIGH_SEVERITY"}},
		Docker:     []bundle.Policy{{Name: "CIS 4.1", Category: bundle.CategoryDocker, Severity: "LOW_SEVERITY"}},
	}
	m := NewModel(b, "cis_policies.json")

	if len(m.allPolicies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(m.allPolicies))
	}

	m.searchInput.SetValue("5.1.1")
	m.applyFilter()
	if len(m.policies) != 1 || m.policies[0].Name != "CIS 5.1.1" {
		t.Errorf("unexpected filter result %+v", m.policies)
	}

	m.searchInput.SetValue("")
	m.applyFilter()
	if len(m.policies) != 2 {
		t.Errorf("expected filter reset, got %d", len(m.policies))
	}
}

func TestTUIModelQuit(t *testing.T) {
	m := NewModel(&bundle.Bundle{}, "empty.json")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if v := updated.(*Model).View(); v != "" {
		t.Errorf("expected empty view after quit, got %q", v)
	}
}
