// Package api serves the outage views, announcement details and locality
// lookups as JSON over gin, plus a server-sent-event stream per view.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Views serves the latest snapshot of each view.
type Views interface {
	Snapshot(ctx context.Context, view domain.ViewKind) pipeline.Snapshot
	Watch(view domain.ViewKind) (<-chan pipeline.Snapshot, func(), error)
}

// Store reads the rows the views do not keep in memory.
type Store interface {
	FetchAnnouncement(ctx context.Context, id string) (domain.Announcement, error)
	FetchUserReports(ctx context.Context, userID string) ([]domain.UserReport, error)
	SearchLocalities(ctx context.Context, q string, limit int) ([]string, error)
}

// SessionStore hands out per-viewer sessions.
type SessionStore interface {
	Get(userID string) *pipeline.Session
	Logout(userID string)
}

// Handler serves the v1 API.
type Handler struct {
	views     Views
	store     Store
	sessions  SessionStore
	loc       *time.Location
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewHandler creates the API handler. Dates are interpreted in loc.
func NewHandler(views Views, store Store, sessions SessionStore, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		views:     views,
		store:     store,
		sessions:  sessions,
		loc:       loc,
		logger:    logger,
		heartbeat: 25 * time.Second,
	}
}

// NewRouter builds a gin engine with recovery, request logging and the v1 routes.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes mounts the handler under /v1.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/v1")
	{
		v1.GET("/dashboard", h.Dashboard)
		v1.GET("/calendar", h.Calendar)
		v1.GET("/map", h.Map)
		v1.GET("/stream/:view", h.Stream)
		v1.GET("/localities", h.Localities)
		v1.GET("/announcements/:id", h.Announcement)
		v1.GET("/users/:id/reports", h.Reports)
		v1.DELETE("/sessions/:id", h.Logout)
	}
}

// Dashboard: GET /v1/dashboard?user_id=...&q=...&date=2024-03-15&status=Ongoing
func (h *Handler) Dashboard(c *gin.Context) { h.serveView(c, domain.ViewDashboard) }

// Calendar: GET /v1/calendar?user_id=...&year=2024&month=3&date=2024-03-18
func (h *Handler) Calendar(c *gin.Context) { h.serveView(c, domain.ViewCalendar) }

// Map: GET /v1/map?user_id=...&feeder=feeder-2&q=Session+Road
func (h *Handler) Map(c *gin.Context) { h.serveView(c, domain.ViewMap) }

func (h *Handler) serveView(c *gin.Context, view domain.ViewKind) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	present, err := h.presenter(c, view)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	snap := h.views.Snapshot(ctx, view)
	if snap.State != pipeline.StateLoaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load " + string(view)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": snapshotMeta(snap),
		"data": present(snap, sess.Locality(ctx)),
	})
}

// Localities: GET /v1/localities?q=iri&limit=10
func (h *Handler) Localities(c *gin.Context) {
	q := c.Query("q")
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.store.SearchLocalities(c.Request.Context(), q, lim)
	if err != nil {
		h.logger.Error("locality search failed", "query", q, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "locality search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"query": q,
			"count": len(res),
			"limit": lim,
		},
		"data": res,
	})
}

// Announcement: GET /v1/announcements/:id
func (h *Handler) Announcement(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.store.FetchAnnouncement(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	case err != nil:
		h.logger.Error("announcement fetch failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load announcement"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

// Reports: GET /v1/users/:id/reports
func (h *Handler) Reports(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.store.FetchUserReports(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("report fetch failed", "user_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res)},
		"data": res,
	})
}

// Logout: DELETE /v1/sessions/:id
// Drops the cached session so the next request resolves the locality again.
func (h *Handler) Logout(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.sessions.Logout(id)
	c.Status(http.StatusNoContent)
}

// session returns the viewer's session. An absent user_id is a guest; a
// malformed one is rejected with 400.
func (h *Handler) session(c *gin.Context) (*pipeline.Session, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		return h.sessions.Get(""), true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return nil, false
	}
	return h.sessions.Get(id.String()), true
}

func pathUUID(c *gin.Context, name string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return "", false
	}
	return id.String(), true
}

func snapshotMeta(snap pipeline.Snapshot) gin.H {
	return gin.H{
		"view":       snap.View,
		"generation": snap.Generation,
		"loaded_at":  snap.LoadedAt,
		"count":      len(snap.Records),
	}
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 10
	}
	if l > 50 {
		return 50
	}
	return l
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
