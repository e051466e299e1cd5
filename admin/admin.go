// Package admin exposes provider registries over HTTP for operators.
//
//	GET  /health                            family health
//	GET  /status                            provider statuses per family
//	PUT  /providers/:family/:id             construct and swap one provider
//	POST /providers/:family/refresh         force a refresh on next read
package admin

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/server"
	"github.com/kbukum/mobilitykit/version"
)

// Registry is the part of provider.Registry the admin surface drives.
type Registry interface {
	Family() string
	Status() []provider.Status
	Invalidate()
	UpdateProvider(ctx context.Context, def provider.Definition) error
}

// Handler serves the admin routes.
type Handler struct {
	service    string
	registries map[string]Registry
	log        *logger.Logger
}

// NewHandler creates a handler over registries, keyed by family.
func NewHandler(service string, log *logger.Logger, registries ...Registry) *Handler {
	h := &Handler{service: service, registries: make(map[string]Registry, len(registries)), log: log}
	for _, r := range registries {
		h.registries[r.Family()] = r
	}
	return h
}

// Register mounts the routes on e.
func (h *Handler) Register(e gin.IRouter) {
	e.GET("/health", h.health)
	e.GET("/status", h.status)
	e.PUT("/providers/:family/:id", h.updateProvider)
	e.POST("/providers/:family/refresh", h.refresh)
}

func (h *Handler) families() []string {
	names := make([]string, 0, len(h.registries))
	for name := range h.registries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) health(c *gin.Context) {
	sh := observability.NewServiceHealth(h.service, version.Get().Version)
	for _, name := range h.families() {
		sh.AddComponent(observability.FamilyHealth(name, len(h.registries[name].Status())))
	}
	code := http.StatusOK
	if sh.Status == observability.HealthStatusDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, sh)
}

// StatusResponse lists the providers of every family in priority order.
type StatusResponse struct {
	Service  string                       `json:"service"`
	Version  version.Info                 `json:"version"`
	Families map[string][]provider.Status `json:"families"`
}

func (h *Handler) status(c *gin.Context) {
	resp := StatusResponse{
		Service:  h.service,
		Version:  version.Get(),
		Families: make(map[string][]provider.Status, len(h.registries)),
	}
	for name, r := range h.registries {
		statuses := r.Status()
		if statuses == nil {
			statuses = []provider.Status{}
		}
		resp.Families[name] = statuses
	}
	server.RespondOK(c, resp)
}

// UpdateRequest is the body of PUT /providers/:family/:id.
type UpdateRequest struct {
	Implementation string         `json:"implementation"`
	Arguments      map[string]any `json:"arguments"`
}

func (h *Handler) updateProvider(c *gin.Context) {
	r, ok := h.registries[c.Param("family")]
	if !ok {
		server.RespondWithError(c, errors.NotFound("provider family", c.Param("family")))
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}

	def := provider.Definition{
		ID:             c.Param("id"),
		Implementation: body.Implementation,
		Arguments:      body.Arguments,
	}
	log := h.log.WithContext(c.Request.Context())
	if err := r.UpdateProvider(c.Request.Context(), def); err != nil {
		log.Warn("forced provider update rejected", logger.MergeWithError(logger.Fields(
			logger.FieldFamily, r.Family(), logger.FieldProviderID, def.ID,
			logger.FieldImplementation, def.Implementation), err))
		server.RespondWithError(c, err)
		return
	}
	log.Info("forced provider update", logger.Fields(
		logger.FieldFamily, r.Family(), logger.FieldProviderID, def.ID,
		logger.FieldImplementation, def.Implementation))
	server.RespondOK(c, gin.H{"family": r.Family(), "id": def.ID})
}

func (h *Handler) refresh(c *gin.Context) {
	r, ok := h.registries[c.Param("family")]
	if !ok {
		server.RespondWithError(c, errors.NotFound("provider family", c.Param("family")))
		return
	}
	r.Invalidate()
	server.RespondAccepted(c, gin.H{"family": r.Family()})
}
