package approval

import (
	"context"
	"testing"
)

func TestAwaitDefaultsToNotApproved(t *testing.T) {
	g := NewGate()
	if g.Await(context.Background(), "deploy-1", "production") {
		t.Error("expected unresolved approval to default to false")
	}
}

func TestGrantApproval(t *testing.T) {
	g := NewGate()
	g.Grant("deploy-1", "production", true)

	if !g.Await(context.Background(), "deploy-1", "production") {
		t.Error("expected granted approval to be true")
	}
	if g.Await(context.Background(), "deploy-1", "staging") {
		t.Error("expected unrelated label to remain unapproved")
	}
}

func TestGrantDenial(t *testing.T) {
	g := NewGate()
	g.Grant("deploy-2", "db-rollback", false)

	if g.Await(context.Background(), "deploy-2", "db-rollback") {
		t.Error("expected explicit denial to stay false")
	}
}
