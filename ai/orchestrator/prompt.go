package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/ai/agent/registry"
	"github.com/mentora/mentora/ai/promptcache"
	"github.com/mentora/mentora/store"
)

// NewPromptBuilder returns the BuildFunc the prompt cache manager uses to
// assemble the static prefix for an agent+lesson pair. Instructions come
// first and lesson content second, and the assembly is deterministic, so
// the same pair always produces a byte-identical prefix.
func NewPromptBuilder(reg *registry.Registry, s *store.Store) promptcache.BuildFunc {
	return func(ctx context.Context, name agent.Name, lessonID string) (string, error) {
		def, err := reg.Definition(ctx, name)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		b.WriteString(def.PromptTemplate)

		lesson, err := s.GetLesson(ctx, lessonID)
		if err != nil {
			return "", fmt.Errorf("load lesson %q: %w", lessonID, err)
		}
		if lesson != nil {
			b.WriteString("\n\n## Current lesson\n")
			fmt.Fprintf(&b, "Title: %s\nSubject: %s\nGrade: %d\n", lesson.Title, lesson.Subject, lesson.Grade)
			if len(lesson.Objectives) > 0 {
				b.WriteString("Objectives:\n")
				for _, obj := range lesson.Objectives {
					b.WriteString("- ")
					b.WriteString(obj)
					b.WriteString("\n")
				}
			}
		}
		return b.String(), nil
	}
}
