package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xpertbrdev/thermal-print-service/internal/db"
	"github.com/xpertbrdev/thermal-print-service/internal/webhook"
)

type CreateWebhookRequest struct {
	Name   string   `json:"name" binding:"required"`
	URL    string   `json:"url" binding:"required,url"`
	Secret string   `json:"secret"`
	Events []string `json:"events" binding:"required"`
}

type UpdateWebhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url" binding:"omitempty,url"`
	Secret  string   `json:"secret"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

type WebhookResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

type WebhookHandler struct {
	db         *sql.DB
	httpClient *http.Client
}

func NewWebhookHandler(database *sql.DB) *WebhookHandler {
	return &WebhookHandler{
		db: database,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	webhooks, err := db.ListWebhooks(h.db)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list webhooks")
		return
	}

	responses := make([]WebhookResponse, 0, len(webhooks))
	for _, w := range webhooks {
		responses = append(responses, webhookToResponse(w))
	}
	respondData(c, http.StatusOK, responses)
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Events) == 0 {
		respondError(c, http.StatusBadRequest, "at least one event must be specified")
		return
	}
	for _, event := range req.Events {
		if !isValidEvent(event) {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid event type: %s", event))
			return
		}
	}

	eventsJSON, err := json.Marshal(req.Events)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to serialize events")
		return
	}

	w := &db.Webhook{
		Name:       req.Name,
		URL:        req.URL,
		Secret:     req.Secret,
		EventsJSON: string(eventsJSON),
		Enabled:    true,
	}

	if err := db.CreateWebhook(h.db, w); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create webhook")
		return
	}

	respondData(c, http.StatusCreated, webhookToResponse(w))
}

func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid webhook id")
		return
	}

	w, err := db.GetWebhookByID(h.db, id)
	if err != nil {
		respondError(c, http.StatusNotFound, "webhook not found")
		return
	}

	respondData(c, http.StatusOK, webhookToResponse(w))
}

func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid webhook id")
		return
	}

	w, err := db.GetWebhookByID(h.db, id)
	if err != nil {
		respondError(c, http.StatusNotFound, "webhook not found")
		return
	}

	var req UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != "" {
		w.Name = req.Name
	}
	if req.URL != "" {
		w.URL = req.URL
	}
	if req.Secret != "" {
		w.Secret = req.Secret
	}
	if len(req.Events) > 0 {
		for _, event := range req.Events {
			if !isValidEvent(event) {
				respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid event type: %s", event))
				return
			}
		}
		eventsJSON, err := json.Marshal(req.Events)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to serialize events")
			return
		}
		w.EventsJSON = string(eventsJSON)
	}
	if req.Enabled != nil {
		w.Enabled = *req.Enabled
	}

	if err := db.UpdateWebhook(h.db, w); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update webhook")
		return
	}

	respondData(c, http.StatusOK, webhookToResponse(w))
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid webhook id")
		return
	}

	if _, err := db.GetWebhookByID(h.db, id); err != nil {
		respondError(c, http.StatusNotFound, "webhook not found")
		return
	}

	if err := db.DeleteWebhook(h.db, id); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to delete webhook")
		return
	}

	respondMessage(c, http.StatusOK, "webhook deleted")
}

// TestWebhook fires a synthetic signed delivery at the endpoint and
// reports whether it answered with a success status.
func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid webhook id")
		return
	}

	w, err := db.GetWebhookByID(h.db, id)
	if err != nil {
		respondError(c, http.StatusNotFound, "webhook not found")
		return
	}

	payload := map[string]interface{}{
		"test":      true,
		"message":   "test delivery from thermal-print-service",
		"timestamp": time.Now(),
		"webhookId": id,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to marshal test payload")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, w.URL, bytes.NewReader(payloadBytes))
	if err != nil {
		respondError(c, http.StatusInternalServerError, fmt.Sprintf("failed to create request: %v", err))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", "test")
	req.Header.Set("X-Webhook-Test", "true")
	req.Header.Set("X-Webhook-Delivery", uuid.NewString())

	if w.Secret != "" {
		mac := hmac.New(sha256.New, []byte(w.Secret))
		mac.Write(payloadBytes)
		req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		respondError(c, http.StatusOK, fmt.Sprintf("failed to deliver: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respondError(c, http.StatusOK, fmt.Sprintf("endpoint returned status %d", resp.StatusCode))
		return
	}

	respondMessage(c, http.StatusOK, fmt.Sprintf("test delivery succeeded (status %d)", resp.StatusCode))
}

func webhookToResponse(w *db.Webhook) WebhookResponse {
	var events []string
	if w.EventsJSON != "" {
		json.Unmarshal([]byte(w.EventsJSON), &events)
	}
	if events == nil {
		events = []string{}
	}

	return WebhookResponse{
		ID:        w.ID,
		Name:      w.Name,
		URL:       w.URL,
		Events:    events,
		Enabled:   w.Enabled,
		CreatedAt: w.CreatedAt,
	}
}

func isValidEvent(event string) bool {
	validEvents := map[string]bool{
		string(webhook.EventJobQueued):    true,
		string(webhook.EventJobPrinting):  true,
		string(webhook.EventJobCompleted): true,
		string(webhook.EventJobFailed):    true,
		string(webhook.EventJobCancelled): true,
	}
	return validEvents[event]
}

func RegisterWebhookRoutes(r *gin.RouterGroup, h *WebhookHandler) {
	r.GET("/webhooks", h.ListWebhooks)
	r.POST("/webhooks", h.CreateWebhook)
	r.GET("/webhooks/:id", h.GetWebhook)
	r.PUT("/webhooks/:id", h.UpdateWebhook)
	r.DELETE("/webhooks/:id", h.DeleteWebhook)
	r.POST("/webhooks/:id/test", h.TestWebhook)
}
