package jobs

import (
	"context"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/pkg/logger"
)

// CachePurgeJob removes expired and corrupt chain cache records
type CachePurgeJob struct {
	cache  chaincache.Store
	logger *logger.Logger
}

// NewCachePurgeJob creates a new cache purge job
func NewCachePurgeJob(store chaincache.Store, log *logger.Logger) *CachePurgeJob {
	return &CachePurgeJob{
		cache:  store,
		logger: log,
	}
}

// Name returns the job name
func (j *CachePurgeJob) Name() string {
	return "cache_purge"
}

// Schedule returns the cron schedule (top of every hour)
func (j *CachePurgeJob) Schedule() string {
	return "0 0 * * * *"
}

// Run executes the purge
func (j *CachePurgeJob) Run(ctx context.Context) error {
	removed, err := j.cache.Purge()
	if err != nil {
		return err
	}
	if removed > 0 {
		j.logger.WithField("removed", removed).Debug("Cache purge job finished")
	}
	return nil
}
