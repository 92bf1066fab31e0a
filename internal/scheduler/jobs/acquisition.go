package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/engine"
	"github.com/wonny/optacq/pkg/logger"
)

// Runner runs one acquisition batch
type Runner interface {
	Run(ctx context.Context, requests []contracts.StrategyTimeframeRequest) (*engine.Run, error)
}

// AcquisitionJob re-reads the request file and runs a batch after the close
// ⭐ SSOT: 정기 수집 스케줄은 이 Job에서만
type AcquisitionJob struct {
	runner       Runner
	requestsFile string
	outputDir    string
	logger       *logger.Logger
}

// NewAcquisitionJob creates a scheduled acquisition job. outputDir may be
// empty, in which case the run is handed only to the engine's sink.
func NewAcquisitionJob(runner Runner, requestsFile, outputDir string, log *logger.Logger) *AcquisitionJob {
	return &AcquisitionJob{
		runner:       runner,
		requestsFile: requestsFile,
		outputDir:    outputDir,
		logger:       log,
	}
}

// Name returns the job name
func (j *AcquisitionJob) Name() string {
	return "scheduled_acquisition"
}

// Schedule returns the cron schedule (weekdays 16:15 New York, after the close)
func (j *AcquisitionJob) Schedule() string {
	return "0 15 16 * * MON-FRI"
}

// Run executes the acquisition
func (j *AcquisitionJob) Run(ctx context.Context) error {
	requests, err := engine.LoadRequests(j.requestsFile)
	if err != nil {
		return err
	}

	run, err := j.runner.Run(ctx, requests)
	if run == nil {
		return err
	}

	if j.outputDir != "" {
		name := fmt.Sprintf("%s-%s.json", run.AsOf.Format("20060102-150405"), run.ID.String()[:8])
		if werr := engine.WriteRun(filepath.Join(j.outputDir, name), run); werr != nil {
			return errors.Join(err, werr)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   run.ID.String(),
		"requests": len(requests),
		"usable":   run.Report.Usable,
	}).Info("Scheduled acquisition completed")
	return err
}
