// Package directive derives per-turn teaching directives from the learner's
// profile and mastery state.
//
// Generation is a pure function: the same input always produces the same
// directives, in the same order. No model call, no storage access, no clock.
package directive

import (
	"fmt"
	"sort"

	"github.com/mentora/mentora/store"
)

// Input is everything directive generation may consider.
type Input struct {
	LearningStyle  store.LearningStyle
	MasteryScore   int // 0-100
	StruggleTopics []string
	StrengthTopics []string
}

// Style directives are fixed per learning style.
var styleDirectives = map[store.LearningStyle][]string{
	store.LearningStyleVisual: {
		"Include a diagram or visual representation with every new concept.",
		"Describe relationships spatially (above, inside, connected to).",
	},
	store.LearningStyleAuditory: {
		"Explain concepts as if speaking aloud, with rhythm and repetition.",
		"Suggest the learner repeat key phrases back in their own words.",
	},
	store.LearningStyleKinesthetic: {
		"Frame concepts as physical actions or hands-on activities.",
		"Propose a small real-world exercise the learner can try now.",
	},
	store.LearningStyleReadingWriting: {
		"Present key points as short written lists the learner can copy.",
		"Suggest the learner write a one-sentence summary after each step.",
	},
}

// Support tiers are cumulative: a learner below 40 receives the directives
// of every tier above it as well. Score thresholds are exclusive upper
// bounds, so a score of exactly 75 receives no support directives.
const (
	tierGuidance   = 75
	tierScaffolded = 60
	tierFoundation = 40
	tierAccelerate = 90
)

// Generate produces the directive list for one turn.
//
// Directive order is deterministic: style directives first, then support
// tiers from mildest to deepest, then struggle topics sorted, then
// acceleration. Holding the other inputs fixed, a lower mastery score
// always yields a superset of the support-tier directives a higher score
// yields. Acceleration directives appear only at or above the high
// threshold and are additive.
func Generate(in Input) []string {
	var out []string

	out = append(out, styleDirectives[in.LearningStyle]...)

	if in.MasteryScore < tierGuidance {
		out = append(out,
			"Check understanding with a quick question before moving on.",
			"Keep each explanation to one concept at a time.",
		)
	}
	if in.MasteryScore < tierScaffolded {
		out = append(out,
			"Work through one fully solved example before asking the learner to try.",
			"Break multi-step problems into explicitly numbered steps.",
		)
	}
	if in.MasteryScore < tierFoundation {
		out = append(out,
			"Revisit the prerequisite concept before introducing anything new.",
			"Use concrete everyday objects in every example.",
			"Celebrate each correct step, however small.",
		)
	}

	if len(in.StruggleTopics) > 0 {
		topics := append([]string(nil), in.StruggleTopics...)
		sort.Strings(topics)
		for _, topic := range topics {
			out = append(out, fmt.Sprintf("Give extra practice and patience on %q; the learner has struggled with it recently.", topic))
		}
	}

	if len(in.StrengthTopics) > 0 {
		topics := append([]string(nil), in.StrengthTopics...)
		sort.Strings(topics)
		out = append(out, fmt.Sprintf("When introducing something new, connect it to %q, which the learner already does well.", topics[0]))
	}

	if in.MasteryScore >= tierAccelerate {
		out = append(out,
			"Offer an extension challenge beyond the lesson objectives.",
			"Invite the learner to explain the concept back as if teaching it.",
		)
	}

	return out
}
