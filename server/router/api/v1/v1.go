// Package v1 exposes the versioned REST API.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/store"
)

// APIV1Service holds the handlers' shared collaborators.
type APIV1Service struct {
	Store *store.Store
	AI    *ai.Services
}

// Register mounts all v1 routes on the group.
func Register(g *echo.Group, s *store.Store, aiServices *ai.Services) *APIV1Service {
	service := &APIV1Service{Store: s, AI: aiServices}

	g.POST("/turn", service.ProcessTurn)
	g.POST("/turn/stream", service.ProcessTurnStream)

	g.GET("/mastery-rules/:subject/:grade", service.GetMasteryRules)
	g.PUT("/mastery-rules/:subject/:grade", service.PutMasteryRules)

	g.GET("/agents", service.ListAgents)
	g.PUT("/agents/:name", service.PutAgent)

	g.PUT("/lessons/:id", service.PutLesson)

	return service
}
