package core

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
)

// PrinterHealthStatus is the rolling per-printer health aggregate.
// AverageProcessingTime is exponentially smoothed (0.8 old, 0.2 sample);
// CurrentLoad is a coarse 0-100 heuristic.
type PrinterHealthStatus struct {
	PrinterID             string        `json:"printerId"`
	IsOnline              bool          `json:"isOnline"`
	LastSeen              time.Time     `json:"lastSeen"`
	SuccessCount          int           `json:"successCount"`
	ErrorCount            int           `json:"errorCount"`
	AverageProcessingTime time.Duration `json:"averageProcessingTime"`
	CurrentLoad           int           `json:"currentLoad"`
}

type Alert struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	PrinterID string    `json:"printerId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	AlertPrinterOffline = "printer_offline"
	AlertHighErrorRate  = "high_error_rate"
	AlertHighLoad       = "high_load"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

const (
	errorRateMinSamples = 10
	errorRateThreshold  = 20.0
	highLoadThreshold   = 80
)

type PrinterMetrics struct {
	PrinterHealthStatus
	SuccessRate float64 `json:"successRate"`
}

type PerformanceMetrics struct {
	TotalJobs             int              `json:"totalJobs"`
	AverageProcessingTime time.Duration    `json:"averageProcessingTime"`
	SuccessRate           float64          `json:"successRate"`
	PrinterMetrics        []PrinterMetrics `json:"printerMetrics"`
}

// Monitor aggregates job lifecycle events into per-session histories and
// per-printer health. It is a pure observer of the queue engine, fed
// exclusively through OnJobEvent.
type Monitor struct {
	mu        sync.RWMutex
	history   map[string][]JobEvent
	health    map[string]*PrinterHealthStatus
	starts    map[string]time.Time
	durations map[string]time.Duration
	cfg       config.MonitoringConfig
	cron      *cron.Cron
}

func NewMonitor(cfg config.MonitoringConfig) *Monitor {
	if cfg.MaxHistoryPerJob <= 0 {
		cfg.MaxHistoryPerJob = 50
	}
	if cfg.RetentionHours <= 0 {
		cfg.RetentionHours = 24
	}
	if cfg.OfflineThreshold <= 0 {
		cfg.OfflineThreshold = 5 * time.Minute
	}

	return &Monitor{
		history:   make(map[string][]JobEvent),
		health:    make(map[string]*PrinterHealthStatus),
		starts:    make(map[string]time.Time),
		durations: make(map[string]time.Duration),
		cfg:       cfg,
	}
}

// Start schedules periodic history cleanup. Stop cancels it.
func (m *Monitor) Start() {
	m.cron = cron.New()
	m.cron.AddFunc("@hourly", func() {
		m.CleanupHistory(time.Duration(m.cfg.RetentionHours) * time.Hour)
	})
	m.cron.Start()
}

func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// OnJobEvent implements JobObserver.
func (m *Monitor) OnJobEvent(event JobEvent) {
	m.mu.Lock()

	history := append(m.history[event.SessionID], event)
	if len(history) > m.cfg.MaxHistoryPerJob {
		history = history[1:]
	}
	m.history[event.SessionID] = history

	m.updateHealthLocked(event)

	switch event.Status {
	case JobStatusPrinting:
		m.starts[event.SessionID] = event.Timestamp
	case JobStatusCompleted, JobStatusFailed:
		start, ok := m.starts[event.SessionID]
		_, done := m.durations[event.SessionID]
		if ok && !done {
			sample := event.Timestamp.Sub(start)
			m.durations[event.SessionID] = sample
			m.updateProcessingTimeLocked(event.PrinterID, sample)
		}
	}
	m.mu.Unlock()

	prev := string(event.PreviousStatus)
	if prev == "" {
		prev = "NEW"
	}
	if event.Status == JobStatusFailed {
		log.Printf("[monitor] job %s: %s -> %s (%s)", event.SessionID, prev, event.Status, event.Error)
	} else {
		log.Printf("[monitor] job %s: %s -> %s", event.SessionID, prev, event.Status)
	}
}

func (m *Monitor) updateHealthLocked(event JobEvent) {
	h, ok := m.health[event.PrinterID]
	if !ok {
		h = &PrinterHealthStatus{PrinterID: event.PrinterID}
		m.health[event.PrinterID] = h
	}

	h.IsOnline = true
	h.LastSeen = event.Timestamp

	switch event.Status {
	case JobStatusCompleted:
		h.SuccessCount++
	case JobStatusFailed:
		h.ErrorCount++
	}

	switch {
	case event.Status == JobStatusPrinting:
		h.CurrentLoad = min(100, h.CurrentLoad+20)
	case event.Status == JobStatusCompleted, event.Status == JobStatusFailed:
		h.CurrentLoad = max(0, h.CurrentLoad-20)
	case event.Status == JobStatusCancelled && event.PreviousStatus == JobStatusPrinting:
		h.CurrentLoad = max(0, h.CurrentLoad-20)
	}
}

func (m *Monitor) updateProcessingTimeLocked(printerID string, sample time.Duration) {
	h, ok := m.health[printerID]
	if !ok {
		return
	}

	if h.AverageProcessingTime == 0 {
		h.AverageProcessingTime = sample
	} else {
		h.AverageProcessingTime = time.Duration(
			float64(h.AverageProcessingTime)*0.8 + float64(sample)*0.2)
	}
}

// JobHistory returns a copy of the session's event log, oldest first.
func (m *Monitor) JobHistory(sessionID string) []JobEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.history[sessionID]
	out := make([]JobEvent, len(history))
	copy(out, history)
	return out
}

func (m *Monitor) PrinterHealth(printerID string) *PrinterHealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.health[printerID]
	if !ok {
		return nil
	}
	c := *h
	return &c
}

func (m *Monitor) AllPrinterHealth() []*PrinterHealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*PrinterHealthStatus, 0, len(m.health))
	for _, h := range m.health {
		c := *h
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PrinterID < out[j].PrinterID
	})
	return out
}

// PerformanceMetrics derives the totals by scanning all session histories
// for terminal jobs; nothing is incrementally cached.
func (m *Monitor) PerformanceMetrics() *PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := &PerformanceMetrics{
		TotalJobs:      len(m.history),
		PrinterMetrics: make([]PrinterMetrics, 0, len(m.health)),
	}

	var totalProcessing time.Duration
	completed := 0
	successful := 0

	for sessionID, history := range m.history {
		if len(history) == 0 {
			continue
		}
		last := history[len(history)-1]
		if last.Status != JobStatusCompleted && last.Status != JobStatusFailed {
			continue
		}
		completed++
		if last.Status == JobStatusCompleted {
			successful++
		}
		totalProcessing += m.durations[sessionID]
	}

	if completed > 0 {
		metrics.AverageProcessingTime = totalProcessing / time.Duration(completed)
		metrics.SuccessRate = float64(successful) / float64(completed) * 100
	}

	for _, h := range m.health {
		pm := PrinterMetrics{PrinterHealthStatus: *h}
		if total := h.SuccessCount + h.ErrorCount; total > 0 {
			pm.SuccessRate = float64(h.SuccessCount) / float64(total) * 100
		}
		metrics.PrinterMetrics = append(metrics.PrinterMetrics, pm)
	}
	sort.Slice(metrics.PrinterMetrics, func(i, j int) bool {
		return metrics.PrinterMetrics[i].PrinterID < metrics.PrinterMetrics[j].PrinterID
	})

	return metrics
}

// CleanupHistory drops events older than the cutoff and returns the number
// of sessions touched. Sessions left without any event are removed
// entirely, along with their performance samples.
func (m *Monitor) CleanupHistory(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	cleaned := 0

	m.mu.Lock()
	for sessionID, history := range m.history {
		filtered := history[:0:0]
		for _, event := range history {
			if event.Timestamp.After(cutoff) {
				filtered = append(filtered, event)
			}
		}
		if len(filtered) == len(history) {
			continue
		}
		cleaned++
		if len(filtered) == 0 {
			delete(m.history, sessionID)
			delete(m.starts, sessionID)
			delete(m.durations, sessionID)
		} else {
			m.history[sessionID] = filtered
		}
	}
	m.mu.Unlock()

	if cleaned > 0 {
		log.Printf("[monitor] history cleanup: %d session(s) pruned", cleaned)
	}
	return cleaned
}

var severityRank = map[string]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
}

// Alerts derives the current alert list from health state, most severe
// first.
func (m *Monitor) Alerts() []Alert {
	now := time.Now()
	var alerts []Alert

	m.mu.RLock()
	for printerID, h := range m.health {
		if sinceSeen := now.Sub(h.LastSeen); sinceSeen > m.cfg.OfflineThreshold {
			alerts = append(alerts, Alert{
				Type:      AlertPrinterOffline,
				Severity:  SeverityHigh,
				PrinterID: printerID,
				Message:   fmt.Sprintf("printer %s offline for %d minutes", printerID, int(sinceSeen.Minutes())),
				Timestamp: now,
			})
		}

		if total := h.SuccessCount + h.ErrorCount; total > errorRateMinSamples {
			if rate := float64(h.ErrorCount) / float64(total) * 100; rate > errorRateThreshold {
				alerts = append(alerts, Alert{
					Type:      AlertHighErrorRate,
					Severity:  SeverityMedium,
					PrinterID: printerID,
					Message:   fmt.Sprintf("high error rate: %.1f%% (%d/%d)", rate, h.ErrorCount, total),
					Timestamp: now,
				})
			}
		}

		if h.CurrentLoad > highLoadThreshold {
			alerts = append(alerts, Alert{
				Type:      AlertHighLoad,
				Severity:  SeverityLow,
				PrinterID: printerID,
				Message:   fmt.Sprintf("high load: %d%%", h.CurrentLoad),
				Timestamp: now,
			})
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank[alerts[i].Severity] > severityRank[alerts[j].Severity]
	})
	return alerts
}
