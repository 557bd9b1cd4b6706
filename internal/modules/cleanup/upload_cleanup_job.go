// Package cleanup removes staged upload files once they fall out of the
// retention window.
package cleanup

import (
	"fmt"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/rs/zerolog"
)

// SnapshotSource reports the snapshot currently served
type SnapshotSource interface {
	Snapshot() *domain.Snapshot
}

// UploadCleanupJob purges staged uploads older than the retention window.
// The files behind the current snapshot are kept.
type UploadCleanupJob struct {
	stager       *ingest.Stager
	retention    time.Duration
	source       SnapshotSource
	eventManager *events.Manager
	now          func() time.Time
	log          zerolog.Logger
}

// NewUploadCleanupJob creates a new upload cleanup job
func NewUploadCleanupJob(stager *ingest.Stager, retention time.Duration, source SnapshotSource, eventManager *events.Manager, log zerolog.Logger) *UploadCleanupJob {
	return &UploadCleanupJob{
		stager:       stager,
		retention:    retention,
		source:       source,
		eventManager: eventManager,
		now:          time.Now,
		log:          log.With().Str("job", "upload_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *UploadCleanupJob) Name() string {
	return "upload_cleanup"
}

// Run executes the cleanup job
func (j *UploadCleanupJob) Run() error {
	cutoff := j.now().Add(-j.retention)

	keep := ""
	if j.source != nil {
		if snap := j.source.Snapshot(); snap != nil {
			keep = snap.UploadID
		}
	}

	removed, err := j.stager.Purge(cutoff, keep)
	if removed > 0 {
		j.log.Info().
			Int("removed", removed).
			Time("cutoff", cutoff).
			Str("dir", j.stager.Dir()).
			Msg("Purged staged uploads")
		if j.eventManager != nil {
			j.eventManager.EmitTyped("cleanup", &events.UploadsPurgedData{Removed: removed})
		}
	} else {
		j.log.Debug().Msg("No staged uploads to purge")
	}

	if err != nil {
		return fmt.Errorf("failed to purge staged uploads: %w", err)
	}
	return nil
}
