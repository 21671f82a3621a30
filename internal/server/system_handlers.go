package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/scheduler"
)

// SystemDatabase is a database whose statistics are reported in the status
type SystemDatabase interface {
	Name() string
	GetStats() (*database.Stats, error)
}

// SystemHandlers serves process, database and job status
type SystemHandlers struct {
	startupTime time.Time
	scheduler   *scheduler.Scheduler
	bus         *events.Bus
	databases   []SystemDatabase
	log         zerolog.Logger
}

// NewSystemHandlers creates the system status handlers
func NewSystemHandlers(databases []SystemDatabase, sched *scheduler.Scheduler, bus *events.Bus, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		startupTime: time.Now(),
		scheduler:   sched,
		bus:         bus,
		databases:   databases,
		log:         log.With().Str("handler", "system").Logger(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	StartedAt        time.Time              `json:"started_at"`
	Status           string                 `json:"status"` // "healthy" or "degraded"
	GoVersion        string                 `json:"go_version"`
	Databases        []*database.Stats      `json:"databases"`
	Jobs             []scheduler.JobStatus  `json:"jobs"`
	SystemStats      map[string]interface{} `json:"system_stats"`
	UptimeSeconds    float64                `json:"uptime_seconds"`
	Goroutines       int                    `json:"goroutines"`
	EventSubscribers int                    `json:"event_subscribers"`
}

// HandleSystemStatus reports uptime, resource usage, database sizes and job state
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startupTime.UTC(),
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make([]*database.Stats, 0, len(h.databases)),
		Jobs:          []scheduler.JobStatus{},
	}

	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			response.Status = "degraded"
			continue
		}
		response.Databases = append(response.Databases, stats)
	}

	if h.scheduler != nil {
		response.Jobs = h.scheduler.Status()
		for _, job := range response.Jobs {
			if job.LastError != "" {
				response.Status = "degraded"
			}
		}
	}

	if h.bus != nil {
		response.EventSubscribers = h.bus.SubscriberCount()
	}

	cpuPercent, ramPercent := h.getSystemStats()
	response.SystemStats = map[string]interface{}{
		"cpu_percent": cpuPercent,
		"ram_percent": ramPercent,
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus lists the registered background jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Status()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleRunJob runs a registered job immediately and reports its outcome
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not running"})
		return
	}

	err := h.scheduler.RunByName(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
	}
}

// getSystemStats calculates CPU and RAM usage percentages.
// The 100ms CPU sample keeps the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
