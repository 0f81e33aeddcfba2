package agent

import (
	"testing"

	"github.com/mentora/mentora/store"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Name
	}{
		{"math", Math},
		{"Mathematics", Math},
		{" MATH ", Math},
		{"science_tutor", Science},
		{"router", Coordinator},
		{"validator", Verifier},
		{"", General},
		{"quantum_basket_weaving", General},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestRoleMapping(t *testing.T) {
	if Coordinator.Role() != store.AgentRoleRouter {
		t.Error("coordinator must carry the router role")
	}
	if Motivator.Role() != store.AgentRoleSupport {
		t.Error("motivator must carry the support role")
	}
	for _, n := range []Name{Math, Science, Reading, General} {
		if n.Role() != store.AgentRoleSpecialist {
			t.Errorf("%s must carry the specialist role", n)
		}
		if !n.IsSpecialist() {
			t.Errorf("%s is a specialist", n)
		}
	}
	for _, n := range []Name{Coordinator, Assessor, Motivator, Verifier} {
		if n.IsSpecialist() {
			t.Errorf("%s is not a specialist", n)
		}
	}
}

func TestValidCoversAll(t *testing.T) {
	for _, n := range All {
		if !Valid(string(n)) {
			t.Errorf("Valid(%s) = false", n)
		}
	}
	if Valid("nope") {
		t.Error("Valid(nope) = true")
	}
}
