package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/session"
)

type PrintRequest struct {
	PrinterID string             `json:"printerId" binding:"required"`
	Content   []core.ContentItem `json:"content" binding:"required"`
	Priority  int                `json:"priority"`
	SessionID string             `json:"sessionId"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type PrintAccepted struct {
	SessionID         string         `json:"sessionId"`
	PrinterID         string         `json:"printerId"`
	Status            core.JobStatus `json:"status"`
	QueuePosition     int            `json:"queuePosition"`
	EstimatedWaitTime int            `json:"estimatedWaitTime"`
	CreatedAt         time.Time      `json:"createdAt"`
}

type SessionMonitor struct {
	Session *core.JobStatusResponse `json:"session"`
	History []core.JobEvent         `json:"history"`
}

type PrintHandler struct {
	engine  *core.Engine
	monitor *core.Monitor
}

func NewPrintHandler(engine *core.Engine, monitor *core.Monitor) *PrintHandler {
	return &PrintHandler{
		engine:  engine,
		monitor: monitor,
	}
}

// CreateSession accepts a print request, enqueues it and answers 202
// before anything is printed. Execution is observable via the status
// endpoints.
func (h *PrintHandler) CreateSession(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := core.ValidateContent(req.Content); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.Generate()
	} else if !session.IsValid(sessionID) {
		respondError(c, http.StatusBadRequest, "invalid session id format")
		return
	}

	job, err := h.engine.AddJob(c.Request.Context(), req.PrinterID, req.Content, req.Priority, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrPrinterNotFound):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrDuplicateSession):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := h.engine.JobStatus(c.Request.Context(), sessionID)
	accepted := PrintAccepted{
		SessionID: job.SessionID,
		PrinterID: job.PrinterID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}
	if status != nil {
		accepted.Status = status.Status
		accepted.QueuePosition = status.QueuePosition
		accepted.EstimatedWaitTime = status.EstimatedWaitTime
	}

	respondData(c, http.StatusAccepted, accepted)
}

func (h *PrintHandler) GetStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !session.IsValid(sessionID) {
		respondError(c, http.StatusBadRequest, "invalid session id format")
		return
	}

	status := h.engine.JobStatus(c.Request.Context(), sessionID)
	if status == nil {
		respondError(c, http.StatusNotFound, "session not found")
		return
	}

	respondData(c, http.StatusOK, status)
}

func (h *PrintHandler) CancelSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !session.IsValid(sessionID) {
		respondError(c, http.StatusBadRequest, "invalid session id format")
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	// A session that is unknown or already terminal is equally not
	// cancellable; both answer 404.
	if !h.engine.CancelJob(sessionID, req.Reason) {
		respondError(c, http.StatusNotFound, "session not found or not cancellable")
		return
	}

	respondMessage(c, http.StatusOK, "session cancelled")
}

// RetrySession clones a failed session's content into a fresh high
// priority session. Only failed sessions are retryable.
func (h *PrintHandler) RetrySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !session.IsValid(sessionID) {
		respondError(c, http.StatusBadRequest, "invalid session id format")
		return
	}

	job, ok := h.engine.GetJob(sessionID)
	if !ok {
		respondError(c, http.StatusNotFound, "session not found")
		return
	}
	if job.Status != core.JobStatusFailed {
		respondError(c, http.StatusBadRequest, "only failed sessions can be retried")
		return
	}

	newSessionID := session.Generate()
	newJob, err := h.engine.AddJob(c.Request.Context(), job.PrinterID, job.Content, core.PriorityHigh, newSessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondData(c, http.StatusAccepted, gin.H{
		"originalSessionId": sessionID,
		"sessionId":         newJob.SessionID,
		"printerId":         newJob.PrinterID,
		"status":            newJob.Status,
	})
}

func (h *PrintHandler) GetQueue(c *gin.Context) {
	printerID := c.Param("printerId")

	snap := h.engine.QueueSnapshot(printerID)
	if snap == nil {
		respondError(c, http.StatusNotFound, "no queue for printer")
		return
	}

	jobs := make([]*core.PrintJob, 0, len(snap.Jobs))
	jobs = append(jobs, snap.Jobs...)

	respondData(c, http.StatusOK, gin.H{
		"printerId":    snap.PrinterID,
		"queueLength":  len(jobs),
		"isProcessing": snap.IsProcessing,
		"currentJob":   snap.CurrentJob,
		"jobs":         jobs,
		"lastActivity": snap.LastActivity,
	})
}

func (h *PrintHandler) ClearQueue(c *gin.Context) {
	printerID := c.Param("printerId")

	cancelled := h.engine.ClearPrinterQueue(printerID)
	respondData(c, http.StatusOK, gin.H{
		"printerId":     printerID,
		"jobsCancelled": cancelled,
	})
}

func (h *PrintHandler) GetStats(c *gin.Context) {
	respondData(c, http.StatusOK, h.engine.Stats())
}

func (h *PrintHandler) ListSessions(c *gin.Context) {
	var statuses []core.JobStatus
	if raw := c.Query("status"); raw != "" {
		statuses = append(statuses, core.JobStatus(raw))
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions := h.engine.Sessions(c.Request.Context(), statuses, c.Query("printerId"), limit)
	respondData(c, http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// MonitorSession combines the current session state with the recorded
// event history for a single view of one session's lifecycle.
func (h *PrintHandler) MonitorSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !session.IsValid(sessionID) {
		respondError(c, http.StatusBadRequest, "invalid session id format")
		return
	}

	status := h.engine.JobStatus(c.Request.Context(), sessionID)
	if status == nil {
		respondError(c, http.StatusNotFound, "session not found")
		return
	}

	history := h.monitor.JobHistory(sessionID)
	if history == nil {
		history = []core.JobEvent{}
	}

	respondData(c, http.StatusOK, SessionMonitor{
		Session: status,
		History: history,
	})
}

func RegisterPrintRoutes(r *gin.RouterGroup, h *PrintHandler) {
	r.POST("/print/session", h.CreateSession)
	r.GET("/print/status/:sessionId", h.GetStatus)
	r.DELETE("/print/cancel/:sessionId", h.CancelSession)
	r.POST("/print/retry/:sessionId", h.RetrySession)
	r.GET("/print/queue/:printerId", h.GetQueue)
	r.GET("/print/stats", h.GetStats)
	r.GET("/print/sessions", h.ListSessions)
	r.GET("/print/monitor/:sessionId", h.MonitorSession)
}

// RegisterPrintAdminRoutes registers the queue-wide destructive
// operations, kept separate so the router can put them behind auth.
func RegisterPrintAdminRoutes(r *gin.RouterGroup, h *PrintHandler) {
	r.DELETE("/print/queue/:printerId", h.ClearQueue)
}
