package api

import (
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stream: GET /v1/stream/:view?user_id=...
// Sends the derived view as an event named after it whenever the view
// reloads, an "error" event when a reload fails, and a "ping" heartbeat.
// Query options are those of the matching JSON endpoint.
func (h *Handler) Stream(c *gin.Context) {
	view, ok := domain.ParseViewKind(c.Param("view"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown view"})
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	present, err := h.presenter(c, view)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates, cancel, err := h.views.Watch(view)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer cancel()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	client := uuid.New().String()
	logger := h.logger.With("client", client, "view", view)
	logger.Info("stream opened", "user_id", sess.UserID())
	defer logger.Info("stream closed")

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": domain.Now().UTC()})
			return true
		case snap := <-updates:
			if snap.State == pipeline.StateErrored {
				c.SSEvent("error", gin.H{"error": "failed to load " + string(view)})
				return true
			}
			c.SSEvent(string(view), gin.H{
				"meta": snapshotMeta(snap),
				"data": present(snap, sess.Locality(ctx)),
			})
			return true
		}
	})
}
