package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xpertbrdev/thermal-print-service/internal/core"
)

type PrinterHealthDTO struct {
	PrinterID             string    `json:"printerId"`
	IsOnline              bool      `json:"isOnline"`
	LastSeen              time.Time `json:"lastSeen"`
	SuccessCount          int       `json:"successCount"`
	ErrorCount            int       `json:"errorCount"`
	AverageProcessingTime int64     `json:"averageProcessingTimeMs"`
	CurrentLoad           int       `json:"currentLoad"`
}

type PrinterMetricsDTO struct {
	PrinterHealthDTO
	SuccessRate float64 `json:"successRate"`
}

type MetricsDTO struct {
	TotalJobs             int                 `json:"totalJobs"`
	AverageProcessingTime int64               `json:"averageProcessingTimeMs"`
	SuccessRate           float64             `json:"successRate"`
	PrinterMetrics        []PrinterMetricsDTO `json:"printerMetrics"`
}

type DashboardDTO struct {
	Queue   *core.QueueStats   `json:"queue"`
	Health  []PrinterHealthDTO `json:"health"`
	Metrics MetricsDTO         `json:"metrics"`
	Alerts  []core.Alert       `json:"alerts"`
}

type MonitoringHandler struct {
	engine  *core.Engine
	monitor *core.Monitor
}

func NewMonitoringHandler(engine *core.Engine, monitor *core.Monitor) *MonitoringHandler {
	return &MonitoringHandler{
		engine:  engine,
		monitor: monitor,
	}
}

func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	respondData(c, http.StatusOK, metricsToDTO(h.monitor.PerformanceMetrics()))
}

func (h *MonitoringHandler) GetHealth(c *gin.Context) {
	health := h.monitor.AllPrinterHealth()
	dtos := make([]PrinterHealthDTO, 0, len(health))
	for _, s := range health {
		dtos = append(dtos, healthToDTO(s))
	}
	respondData(c, http.StatusOK, dtos)
}

func (h *MonitoringHandler) GetPrinterHealth(c *gin.Context) {
	printerID := c.Param("printerId")

	status := h.monitor.PrinterHealth(printerID)
	if status == nil {
		respondError(c, http.StatusNotFound, "no health data for printer")
		return
	}

	respondData(c, http.StatusOK, healthToDTO(status))
}

func (h *MonitoringHandler) GetAlerts(c *gin.Context) {
	alerts := h.monitor.Alerts()
	respondData(c, http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetDashboard bundles queue stats, health, metrics and alerts into one
// response for polling UIs.
func (h *MonitoringHandler) GetDashboard(c *gin.Context) {
	health := h.monitor.AllPrinterHealth()
	healthDTOs := make([]PrinterHealthDTO, 0, len(health))
	for _, s := range health {
		healthDTOs = append(healthDTOs, healthToDTO(s))
	}

	respondData(c, http.StatusOK, DashboardDTO{
		Queue:   h.engine.Stats(),
		Health:  healthDTOs,
		Metrics: metricsToDTO(h.monitor.PerformanceMetrics()),
		Alerts:  h.monitor.Alerts(),
	})
}

func (h *MonitoringHandler) Cleanup(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid hours")
			return
		}
		hours = n
	}

	removed := h.monitor.CleanupHistory(time.Duration(hours) * time.Hour)
	respondData(c, http.StatusOK, gin.H{
		"removedSessions": removed,
		"olderThanHours":  hours,
	})
}

func healthToDTO(s *core.PrinterHealthStatus) PrinterHealthDTO {
	return PrinterHealthDTO{
		PrinterID:             s.PrinterID,
		IsOnline:              s.IsOnline,
		LastSeen:              s.LastSeen,
		SuccessCount:          s.SuccessCount,
		ErrorCount:            s.ErrorCount,
		AverageProcessingTime: s.AverageProcessingTime.Milliseconds(),
		CurrentLoad:           s.CurrentLoad,
	}
}

func metricsToDTO(m *core.PerformanceMetrics) MetricsDTO {
	dto := MetricsDTO{
		TotalJobs:             m.TotalJobs,
		AverageProcessingTime: m.AverageProcessingTime.Milliseconds(),
		SuccessRate:           m.SuccessRate,
		PrinterMetrics:        make([]PrinterMetricsDTO, 0, len(m.PrinterMetrics)),
	}
	for _, pm := range m.PrinterMetrics {
		dto.PrinterMetrics = append(dto.PrinterMetrics, PrinterMetricsDTO{
			PrinterHealthDTO: healthToDTO(&pm.PrinterHealthStatus),
			SuccessRate:      pm.SuccessRate,
		})
	}
	return dto
}

func RegisterMonitoringRoutes(r *gin.RouterGroup, h *MonitoringHandler, hub *EventHub) {
	r.GET("/monitoring/metrics", h.GetMetrics)
	r.GET("/monitoring/health", h.GetHealth)
	r.GET("/monitoring/health/:printerId", h.GetPrinterHealth)
	r.GET("/monitoring/alerts", h.GetAlerts)
	r.GET("/monitoring/dashboard", h.GetDashboard)
	r.GET("/monitoring/ws", hub.Serve)
}

func RegisterMonitoringAdminRoutes(r *gin.RouterGroup, h *MonitoringHandler) {
	r.DELETE("/monitoring/cleanup", h.Cleanup)
}
