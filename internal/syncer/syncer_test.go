package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/central"
)

// fakeStore is an in-memory PolicyStore.
type fakeStore struct {
	existing  []central.PolicySummary
	listErr   error
	failNames map[string]bool
	created   []string
	nextID    int
}

func (f *fakeStore) ListPolicies(_ context.Context) ([]central.PolicySummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.existing, nil
}

func (f *fakeStore) CreatePolicy(_ context.Context, raw json.RawMessage) (string, error) {
	var hdr struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return "", err
	}
	if f.failNames[hdr.Name] {
		return "", fmt.Errorf("create rejected")
	}
	f.created = append(f.created, hdr.Name)
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID), nil
}

func mkPolicies(names ...string) []bundle.Policy {
	out := make([]bundle.Policy, len(names))
	for i, n := range names {
		out[i] = bundle.Policy{
			Name:     n,
			Category: bundle.CategoryKubernetes,
			Raw:      json.RawMessage(`{"name": "` + n + `"}`),
		}
	}
	return out
}

func checkInvariant(t *testing.T, res Result) {
	t.Helper()
	if res.Processed != res.Created+res.Skipped+res.Failed {
		t.Errorf("invariant violated: processed=%d created=%d skipped=%d failed=%d",
			res.Processed, res.Created, res.Skipped, res.Failed)
	}
	if len(res.Outcomes) != res.Processed {
		t.Errorf("expected %d outcomes, got %d", res.Processed, len(res.Outcomes))
	}
}

func TestRunSkipsExisting(t *testing.T) {
	store := &fakeStore{existing: []central.PolicySummary{{ID: "1", Name: "A"}}}
	s := New(store)

	res := s.Run(context.Background(), mkPolicies("A", "B"))

	checkInvariant(t, res)
	if res.Processed != 2 || res.Created != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("unexpected tally %d/%d/%d/%d", res.Processed, res.Created, res.Skipped, res.Failed)
	}
	if len(store.created) != 1 || store.created[0] != "B" {
		t.Errorf("expected create called once for B, got %v", store.created)
	}
	if res.Outcomes[0].Action != ActionSkipped || res.Outcomes[1].Action != ActionCreated {
		t.Errorf("unexpected outcomes %+v", res.Outcomes)
	}
	if res.Outcomes[1].PolicyID == "" {
		t.Error("expected created outcome to carry the assigned ID")
	}
}

func TestRunCreateFailureCounted(t *testing.T) {
	store := &fakeStore{
		existing:  []central.PolicySummary{{Name: "A"}},
		failNames: map[string]bool{"B": true},
	}
	s := New(store)

	res := s.Run(context.Background(), mkPolicies("A", "B"))

	checkInvariant(t, res)
	if res.Processed != 2 || res.Created != 0 || res.Skipped != 1 || res.Failed != 1 {
		t.Errorf("unexpected tally %d/%d/%d/%d", res.Processed, res.Created, res.Skipped, res.Failed)
	}
	if res.Outcomes[1].Error == "" {
		t.Error("expected failed outcome to carry the error")
	}
}

func TestRunSkipExistingDisabled(t *testing.T) {
	store := &fakeStore{existing: []central.PolicySummary{{Name: "A"}}}
	s := New(store, WithSkipExisting(false))

	res := s.Run(context.Background(), mkPolicies("A", "B"))

	checkInvariant(t, res)
	if res.Skipped != 0 {
		t.Errorf("expected no skips, got %d", res.Skipped)
	}
	if len(store.created) != 2 {
		t.Errorf("expected every policy submitted, got %v", store.created)
	}
}

func TestRunListFailureAssumesEmpty(t *testing.T) {
	store := &fakeStore{listErr: fmt.Errorf("boom")}
	s := New(store)

	res := s.Run(context.Background(), mkPolicies("A"))

	checkInvariant(t, res)
	if res.Created != 1 {
		t.Errorf("expected create to proceed after list failure, got %+v", res)
	}
}

func TestRunDryRun(t *testing.T) {
	store := &fakeStore{existing: []central.PolicySummary{{Name: "A"}}}
	s := New(store, WithDryRun(true))

	res := s.Run(context.Background(), mkPolicies("A", "B"))

	checkInvariant(t, res)
	if len(store.created) != 0 {
		t.Errorf("dry run must not call create, got %v", store.created)
	}
	if res.Created != 1 || res.Skipped != 1 {
		t.Errorf("unexpected dry-run tally %d/%d", res.Created, res.Skipped)
	}
	if !res.DryRun {
		t.Error("expected DryRun flag on result")
	}
}

func TestRunPreservesOrder(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	res := s.Run(context.Background(), mkPolicies("k1", "d1", "r1"))

	checkInvariant(t, res)
	want := []string{"k1", "d1", "r1"}
	for i, n := range want {
		if res.Outcomes[i].Name != n {
			t.Errorf("position %d: expected %q, got %q", i, n, res.Outcomes[i].Name)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	s := New(&fakeStore{})
	res := s.Run(context.Background(), nil)
	checkInvariant(t, res)
	if res.Processed != 0 {
		t.Errorf("expected zero processed, got %d", res.Processed)
	}
}

// A nil tracer option must fall back to the noop default instead of
// panicking inside Run.
func TestRunNilTracerOption(t *testing.T) {
	store := &fakeStore{}
	s := New(store, WithTracer(nil))

	res := s.Run(context.Background(), mkPolicies("A"))

	checkInvariant(t, res)
	if res.Created != 1 {
		t.Errorf("expected create to proceed with nil tracer, got %+v", res)
	}
}

// Duplicate names within the input are not deduplicated by the tool; the
// second occurrence is submitted and the store decides.
func TestRunInputDuplicatesNotDeduped(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	res := s.Run(context.Background(), mkPolicies("A", "A"))

	checkInvariant(t, res)
	if len(store.created) != 2 {
		t.Errorf("expected both duplicates submitted, got %v", store.created)
	}
	if res.Created != 2 {
		t.Errorf("unexpected tally %+v", res)
	}
}
