// Package handlers implements the read-only status API handlers.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dwsmith1983/guardian/internal/aggregate"
	"github.com/dwsmith1983/guardian/internal/watcher"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// Store exposes the latest analysis. *watcher.Watcher satisfies it.
type Store interface {
	Latest() (types.Report, bool)
	Status() watcher.Status
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	store  Store
	logger *slog.Logger
}

// New creates a new Handlers instance.
func New(store Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: store, logger: logger}
}

// OwnerReport is the response of GET /api/owners/:key.
type OwnerReport struct {
	RunID  string             `json:"runId"`
	Owner  types.OwnerGroup   `json:"owner"`
	AtRisk []types.RiskStatus `json:"atRisk"`
}

// Health reports "ok", "waiting" before the first report, or "degraded"
// when the last run failed or used fallback rules.
func (h *Handlers) Health(c *gin.Context) {
	st := h.store.Status()
	rep, ok := h.store.Latest()

	status := "ok"
	switch {
	case !ok:
		status = "waiting"
	case st.LastError != "" || rep.Degraded:
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"watcher": st,
	})
}

// Report returns the full latest report.
func (h *Handlers) Report(c *gin.Context) {
	rep, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Summary returns the aggregate view of the latest report.
func (h *Handlers) Summary(c *gin.Context) {
	rep, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":       rep.RunID,
		"generatedAt": rep.GeneratedAt,
		"summary":     rep.Summary,
	})
}

// AtRisk returns the SLA risk scan of the latest report.
func (h *Handlers) AtRisk(c *gin.Context) {
	rep, ok := h.latest(c)
	if !ok {
		return
	}
	statuses := rep.AtRisk
	if statuses == nil {
		statuses = []types.RiskStatus{}
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":  rep.RunID,
		"counts": aggregate.CountByState(statuses),
		"atRisk": statuses,
	})
}

// Owner returns one owner group with its at-risk tickets. Keys compare
// case-insensitively.
func (h *Handlers) Owner(c *gin.Context) {
	rep, ok := h.latest(c)
	if !ok {
		return
	}
	key := c.Param("key")
	for _, g := range rep.Summary.ByOwner {
		if !strings.EqualFold(g.Key, key) {
			continue
		}
		atRisk := aggregate.GroupRisk(rep.AtRisk)[g.Key]
		if atRisk == nil {
			atRisk = []types.RiskStatus{}
		}
		c.JSON(http.StatusOK, OwnerReport{RunID: rep.RunID, Owner: g, AtRisk: atRisk})
		return
	}
	h.writeError(c, http.StatusNotFound, "owner not found", nil)
}

func (h *Handlers) latest(c *gin.Context) (types.Report, bool) {
	rep, ok := h.store.Latest()
	if !ok {
		h.writeError(c, http.StatusServiceUnavailable, "no report available yet", nil)
	}
	return rep, ok
}

// writeError logs the internal error and returns a sanitized JSON error to the client.
func (h *Handlers) writeError(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
