package reconciler

import (
	"testing"

	"scmcicd/internal/policy"
)

func TestRunMetrics_NewInstance(t *testing.T) {
	metrics := NewRunMetrics()
	if metrics == nil {
		t.Fatal("expected non-nil metrics instance")
	}
	if metrics.kinds == nil {
		t.Error("expected kinds map to be initialized")
	}
	if summary := metrics.Summary(); summary.FailureRate != 0 {
		t.Errorf("expected FailureRate=0 for an empty run, got %f", summary.FailureRate)
	}
}

func TestRunMetrics_RecordResult(t *testing.T) {
	metrics := NewRunMetrics()

	metrics.RecordResult(Result{Kind: policy.KindSecurityRule, Name: "a", Status: StatusCreated})
	metrics.RecordResult(Result{Kind: policy.KindSecurityRule, Name: "b", Status: StatusUpdated})
	metrics.RecordResult(Result{Kind: policy.KindSecurityRule, Name: "c", Status: StatusSkipped})
	metrics.RecordResult(Result{Kind: policy.KindAddress, Name: "d", Status: StatusFailed, Message: "rejected"})

	summary := metrics.Summary()
	if summary.TotalOperations != 4 {
		t.Errorf("expected TotalOperations=4, got %d", summary.TotalOperations)
	}
	if summary.TotalChanges != 2 {
		t.Errorf("expected TotalChanges=2, got %d", summary.TotalChanges)
	}
	if summary.TotalFailures != 1 {
		t.Errorf("expected TotalFailures=1, got %d", summary.TotalFailures)
	}
	if summary.FailureRate != 0.25 {
		t.Errorf("expected FailureRate=0.25, got %f", summary.FailureRate)
	}

	rules, ok := metrics.KindMetrics(policy.KindSecurityRule)
	if !ok {
		t.Fatal("expected security-rule metrics to exist")
	}
	if rules.Created != 1 || rules.Updated != 1 || rules.Skipped != 1 {
		t.Errorf("unexpected security-rule counters: %+v", rules)
	}

	addresses, ok := metrics.KindMetrics(policy.KindAddress)
	if !ok {
		t.Fatal("expected address metrics to exist")
	}
	if addresses.LastFailure != "rejected" {
		t.Errorf("expected LastFailure=rejected, got %q", addresses.LastFailure)
	}
	if addresses.LastFailureAt.IsZero() {
		t.Error("expected LastFailureAt to be set")
	}
}

func TestRunMetrics_SimulatedResultsAreNotChanges(t *testing.T) {
	metrics := NewRunMetrics()

	metrics.RecordResult(Result{Kind: policy.KindAddress, Status: StatusCreated, Simulated: true})

	summary := metrics.Summary()
	if summary.TotalChanges != 0 {
		t.Errorf("expected TotalChanges=0, got %d", summary.TotalChanges)
	}
	view, _ := metrics.KindMetrics(policy.KindAddress)
	if view.Simulated != 1 {
		t.Errorf("expected Simulated=1, got %d", view.Simulated)
	}
}

func TestRunMetrics_SummarySortsKinds(t *testing.T) {
	metrics := NewRunMetrics()
	metrics.RecordResult(Result{Kind: policy.KindSecurityRule, Status: StatusSkipped})
	metrics.RecordResult(Result{Kind: policy.KindAddress, Status: StatusSkipped})

	summary := metrics.Summary()
	if len(summary.PerKind) != 2 {
		t.Fatalf("expected 2 kinds, got %d", len(summary.PerKind))
	}
	if summary.PerKind[0].Kind != policy.KindAddress {
		t.Errorf("expected address first, got %s", summary.PerKind[0].Kind)
	}
}

func TestRunMetrics_UnknownKind(t *testing.T) {
	if _, ok := NewRunMetrics().KindMetrics(policy.KindAddress); ok {
		t.Error("expected no metrics for an unseen kind")
	}
}
