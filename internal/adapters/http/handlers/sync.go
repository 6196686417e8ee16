package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// SyncHandler handles sync control HTTP endpoints.
type SyncHandler struct {
	service *app.QuoteService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(service *app.QuoteService) *SyncHandler {
	return &SyncHandler{
		service: service,
	}
}

// ConflictResponse describes a pending sync conflict. It carries counts
// only; the held remote snapshot is applied server-side on resolution.
type ConflictResponse struct {
	LocalCount    int       `json:"localCount"`
	RemoteCount   int       `json:"remoteCount"`
	BaselineCount int       `json:"baselineCount"`
	DetectedAt    time.Time `json:"detectedAt"`
}

// toConflictResponse converts a domain conflict record.
func toConflictResponse(r *domain.ConflictRecord) *ConflictResponse {
	if r == nil {
		return nil
	}

	return &ConflictResponse{
		LocalCount:    r.LocalCount,
		RemoteCount:   r.RemoteCount,
		BaselineCount: r.BaselineCount,
		DetectedAt:    r.DetectedAt,
	}
}

// SyncOutcomeResponse reports what one sync cycle (or resolution) did.
type SyncOutcomeResponse struct {
	Status      string            `json:"status"`
	Added       int               `json:"added"`
	Skipped     int               `json:"skipped"`
	RemoteCount int               `json:"remoteCount"`
	FirstSync   bool              `json:"firstSync"`
	Pushed      bool              `json:"pushed"`
	Conflict    *ConflictResponse `json:"conflict,omitempty"`
	CompletedAt time.Time         `json:"completedAt"`
}

// toSyncOutcomeResponse converts a domain sync outcome.
func toSyncOutcomeResponse(o *domain.SyncOutcome) *SyncOutcomeResponse {
	if o == nil {
		return nil
	}

	return &SyncOutcomeResponse{
		Status:      string(o.Status),
		Added:       o.Added,
		Skipped:     o.Skipped,
		RemoteCount: o.RemoteCount,
		FirstSync:   o.FirstSync,
		Pushed:      o.Pushed,
		Conflict:    toConflictResponse(o.Conflict),
		CompletedAt: o.CompletedAt,
	}
}

// SyncStatusResponse is the full sync state view for the widget.
type SyncStatusResponse struct {
	State            string               `json:"state"`
	LastSyncTime     *time.Time           `json:"lastSyncTime,omitempty"`
	AutoSyncEnabled  bool                 `json:"autoSyncEnabled"`
	SchedulerRunning bool                 `json:"schedulerRunning"`
	Conflict         *ConflictResponse    `json:"conflict,omitempty"`
	LastOutcome      *SyncOutcomeResponse `json:"lastOutcome,omitempty"`
}

// toSyncStatusResponse converts the service status report.
// LastSyncTime is omitted entirely when no sync has ever completed.
func toSyncStatusResponse(report *app.SyncStatusReport) *SyncStatusResponse {
	resp := &SyncStatusResponse{
		State:            string(report.State),
		AutoSyncEnabled:  report.AutoSyncEnabled,
		SchedulerRunning: report.SchedulerRunning,
		Conflict:         toConflictResponse(report.Conflict),
		LastOutcome:      toSyncOutcomeResponse(report.LastOutcome),
	}

	if !report.LastSyncTime.IsZero() {
		t := report.LastSyncTime
		resp.LastSyncTime = &t
	}

	return resp
}

// AutoSyncResponse reports the auto-sync toggle result.
type AutoSyncResponse struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`

	// Warning is set when the preference flag could not be persisted.
	// The scheduler state change still took effect.
	Warning string `json:"warning,omitempty"`
}

// SyncNow handles POST /api/v1/sync
// Runs one sync cycle against the remote endpoint.
//
// @Summary Trigger a sync cycle
// @Description Fetches the remote snapshot, merges or flags a conflict
// @Tags sync
// @Produce json
// @Success 200 {object} SyncOutcomeResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/sync [post]
func (h *SyncHandler) SyncNow(c *gin.Context) {
	outcome, err := h.service.SyncNow(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSyncOutcomeResponse(outcome))
}

// Status handles GET /api/v1/sync/status
// Returns the sync state machine view: state, last sync instant, auto-sync
// flag, scheduler liveness, any pending conflict, and the last outcome.
func (h *SyncHandler) Status(c *gin.Context) {
	report := h.service.SyncStatus(c.Request.Context())

	c.JSON(http.StatusOK, toSyncStatusResponse(report))
}

// SetAutoSync handles POST /api/v1/sync/auto
// Starts or stops the background scheduler. A preference persist failure
// is reported as a warning; the scheduler change itself stands.
//
// @Summary Toggle auto-sync
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} AutoSyncResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/sync/auto [post]
func (h *SyncHandler) SetAutoSync(c *gin.Context) {
	var req dto.AutoSyncRequest

	err := dto.BindAndValidate(c, &req)
	if err != nil {
		handleBindingError(c, err)
		return
	}

	enabled := *req.Enabled

	err = h.service.SetAutoSync(c.Request.Context(), enabled)
	if err != nil && !domain.IsStorage(err) {
		dto.HandleError(c, err)
		return
	}

	resp := AutoSyncResponse{
		Enabled: enabled,
		Running: h.service.SyncStatus(c.Request.Context()).SchedulerRunning,
	}
	if err != nil {
		resp.Warning = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// Resolve handles POST /api/v1/sync/resolve
// Resolves a pending conflict in favor of the remote or local collection.
//
// @Summary Resolve a sync conflict
// @Description Applies the held remote snapshot or keeps local quotes
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} SyncOutcomeResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/sync/resolve [post]
func (h *SyncHandler) Resolve(c *gin.Context) {
	var req dto.ResolveConflictRequest

	err := dto.BindAndValidate(c, &req)
	if err != nil {
		handleBindingError(c, err)
		return
	}

	outcome, err := h.service.ResolveConflict(c.Request.Context(), *req.UseRemote)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSyncOutcomeResponse(outcome))
}

// RegisterSyncRoutes registers sync routes on the given router group.
func (h *SyncHandler) RegisterSyncRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	sync.POST("", h.SyncNow)
	sync.GET("/status", h.Status)
	sync.POST("/auto", h.SetAutoSync)
	sync.POST("/resolve", h.Resolve)
}
