package policy

import (
	"context"
	"testing"

	"avenant/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func principal(role domain.ActorRole) domain.Principal {
	return domain.Principal{Subject: "u-1", Role: role, ProjectID: "p-1"}
}

func TestPromoterMayPerformEveryAction(t *testing.T) {
	engine := newTestEngine(t)
	actions := []string{
		"offer.create", "offer.read", "offer.submit",
		"offer.approve_client", "offer.approve_architect",
		"offer.reject", "offer.resubmit", "offer.comment",
		"avenant.generate", "avenant.read", "avenant.sign",
		"trail.read",
	}
	for _, action := range actions {
		allowed, err := engine.Allow(context.Background(), principal(domain.RolePromoter), action)
		if err != nil {
			t.Fatalf("allow %s: %v", action, err)
		}
		if !allowed {
			t.Fatalf("promoter should be allowed %s", action)
		}
	}
}

func TestStageActionsAreRoleBound(t *testing.T) {
	engine := newTestEngine(t)
	cases := []struct {
		role    domain.ActorRole
		action  string
		allowed bool
	}{
		{domain.RoleClient, "offer.approve_client", true},
		{domain.RoleClient, "offer.approve_architect", false},
		{domain.RoleArchitect, "offer.approve_architect", true},
		{domain.RoleArchitect, "offer.approve_client", false},
		{domain.RoleContractor, "offer.submit", true},
		{domain.RoleContractor, "offer.approve_client", false},
		{domain.RoleContractor, "avenant.generate", false},
		{domain.RoleArchitect, "avenant.sign", true},
		{domain.RoleClient, "trail.read", true},
	}
	for _, tc := range cases {
		allowed, err := engine.Allow(context.Background(), principal(tc.role), tc.action)
		if err != nil {
			t.Fatalf("allow %s/%s: %v", tc.role, tc.action, err)
		}
		if allowed != tc.allowed {
			t.Fatalf("%s/%s = %v, want %v", tc.role, tc.action, allowed, tc.allowed)
		}
	}
}

func TestUnknownRoleAndActionDeny(t *testing.T) {
	engine := newTestEngine(t)

	allowed, err := engine.Allow(context.Background(), principal("auditor"), "offer.read")
	if err != nil {
		t.Fatalf("allow unknown role: %v", err)
	}
	if allowed {
		t.Fatal("unknown role should be denied")
	}

	allowed, err = engine.Allow(context.Background(), principal(domain.RolePromoter), "offer.delete")
	if err != nil {
		t.Fatalf("allow unknown action: %v", err)
	}
	if allowed {
		t.Fatal("unknown action should be denied")
	}
}
