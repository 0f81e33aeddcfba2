// Package agent defines the closed set of tutoring agents and their roles.
package agent

import (
	"strings"

	"github.com/mentora/mentora/store"
)

// Name identifies a tutoring agent. The set is closed: routing decisions
// outside this set normalize to the general-purpose fallback.
type Name string

const (
	Coordinator Name = "coordinator"
	Math        Name = "math"
	Science     Name = "science"
	Reading     Name = "reading"
	General     Name = "general"
	Assessor    Name = "assessor"
	Motivator   Name = "motivator"
	Verifier    Name = "verifier"
)

// All lists every agent in the closed set.
var All = []Name{Coordinator, Math, Science, Reading, General, Assessor, Motivator, Verifier}

// aliases maps common model-emitted variants onto canonical names.
var aliases = map[string]Name{
	"coordinator":    Coordinator,
	"router":         Coordinator,
	"math":           Math,
	"mathematics":    Math,
	"math_tutor":     Math,
	"science":        Science,
	"science_tutor":  Science,
	"reading":        Reading,
	"language":       Reading,
	"reading_tutor":  Reading,
	"general":        General,
	"general_tutor":  General,
	"default":        General,
	"assessor":       Assessor,
	"assessment":     Assessor,
	"motivator":      Motivator,
	"encouragement":  Motivator,
	"verifier":       Verifier,
	"validator":      Verifier,
	"fact_checker":   Verifier,
}

// Normalize maps a raw agent string (typically from a model response) onto
// the closed set. Unknown names fall back to General so that a bad routing
// decision still produces a usable agent.
func Normalize(raw string) Name {
	key := strings.ToLower(strings.TrimSpace(raw))
	if name, ok := aliases[key]; ok {
		return name
	}
	return General
}

// Valid reports whether raw is a canonical agent name.
func Valid(raw string) bool {
	for _, n := range All {
		if string(n) == raw {
			return true
		}
	}
	return false
}

// Role returns the registry role an agent definition must carry.
func (n Name) Role() store.AgentRole {
	switch n {
	case Coordinator:
		return store.AgentRoleRouter
	case Math, Science, Reading, General:
		return store.AgentRoleSpecialist
	case Assessor:
		return store.AgentRoleAssessor
	case Motivator:
		return store.AgentRoleSupport
	case Verifier:
		return store.AgentRoleValidator
	default:
		return store.AgentRoleSpecialist
	}
}

// IsSpecialist reports whether responses from this agent carry factual
// teaching content and therefore require verification before delivery.
func (n Name) IsSpecialist() bool {
	switch n {
	case Math, Science, Reading, General:
		return true
	default:
		return false
	}
}

func (n Name) String() string { return string(n) }
