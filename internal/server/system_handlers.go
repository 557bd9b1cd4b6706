package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves process and snapshot status
type SystemHandlers struct {
	log       zerolog.Logger
	db        *database.DB
	service   *holdings.Service
	uploadDir string
	startedAt time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, db *database.DB, service *holdings.Service, uploadDir string) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		db:        db,
		service:   service,
		uploadDir: uploadDir,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string              `json:"status"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	CPUPercent    float64             `json:"cpu_percent"`
	MemoryPercent float64             `json:"memory_percent"`
	Goroutines    int                 `json:"goroutines"`
	Database      DBInfo              `json:"database"`
	UploadsDirMB  float64             `json:"uploads_dir_mb"`
	SnapshotReady bool                `json:"snapshot_loaded"`
	Snapshot      domain.SnapshotInfo `json:"snapshot"`
	LastChecked   string              `json:"last_checked"`
}

// DBInfo represents information about the snapshot database
type DBInfo struct {
	Name     string `json:"name"`
	Profile  string `json:"profile"`
	Healthy  bool   `json:"healthy"`
	PageSize int64  `json:"page_size,omitempty"`
	Pages    int64  `json:"pages,omitempty"`
}

// GetSystemStatusSnapshot returns a snapshot of the current system status.
func (h *SystemHandlers) GetSystemStatusSnapshot(r *http.Request) SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()
	snap := h.service.Snapshot()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		UploadsDirMB:  h.getDirSize(h.uploadDir),
		SnapshotReady: !snap.Empty(),
		Snapshot:      snap.Info(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if h.db != nil {
		response.Database = DBInfo{Name: h.db.Name(), Profile: string(h.db.Profile()), Healthy: true}
		if err := h.db.QuickCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("Database quick check failed")
			response.Database.Healthy = false
			response.Status = "degraded"
		}
		if stats, err := h.db.GetStats(); err == nil {
			response.Database.PageSize = stats.PageSize
			response.Database.Pages = stats.PageCount
		}
	}

	return response
}

// HandleSystemStatus returns system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	h.writeJSON(w, h.GetSystemStatusSnapshot(r))
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
