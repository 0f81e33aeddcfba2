package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/ai/agent"
	"github.com/mentora/mentora/store"
)

// ListAgents returns every registered agent definition.
func (s *APIV1Service) ListAgents(c echo.Context) error {
	defs, err := s.Store.ListAgentDefinitions(c.Request().Context(), &store.FindAgentDefinition{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list agents").SetInternal(err)
	}
	return c.JSON(http.StatusOK, defs)
}

// PutAgent writes an agent definition. The registry snapshot and the
// agent's prompt cache entries are invalidated so the next turn sees the
// new definition.
func (s *APIV1Service) PutAgent(c echo.Context) error {
	name := c.Param("name")
	if !agent.Valid(name) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown agent name")
	}

	var def store.AgentDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed agent definition").SetInternal(err)
	}
	def.Name = name
	if def.Role == "" {
		def.Role = agent.Name(name).Role()
	}
	if def.PromptTemplate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt_template is required")
	}

	saved, err := s.AI.Registry.Upsert(c.Request().Context(), &def)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save agent").SetInternal(err)
	}
	s.AI.Prompts.InvalidateAgent(agent.Name(name))

	return c.JSON(http.StatusOK, saved)
}

// PutLesson writes lesson metadata and drops its prompt cache entries.
func (s *APIV1Service) PutLesson(c echo.Context) error {
	id := c.Param("id")
	var lesson store.Lesson
	if err := c.Bind(&lesson); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed lesson").SetInternal(err)
	}
	lesson.ID = id
	if lesson.Subject == "" || lesson.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject and title are required")
	}

	saved, err := s.Store.UpsertLesson(c.Request().Context(), &lesson)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save lesson").SetInternal(err)
	}
	s.AI.Prompts.InvalidateLesson(id)

	return c.JSON(http.StatusOK, saved)
}
