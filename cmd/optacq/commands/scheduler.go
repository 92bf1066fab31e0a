package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/app"
	"github.com/wonny/optacq/internal/scheduler"
	"github.com/wonny/optacq/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `Starts the scheduler or runs one of its jobs.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Jobs:
  cache_purge            - hourly, removes expired cache records
  scheduled_acquisition  - weekdays 16:15 New York, needs SCHEDULE_REQUESTS_FILE

Example:
  go run ./cmd/optacq scheduler start
  go run ./cmd/optacq scheduler run scheduled_acquisition`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", jobName)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "Shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()
	widths := []int{24, 20, 26}
	PrintTableHeader(out, []string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, jobName := range sched.GetAllJobs() {
		st := stats[jobName]
		next := "-"
		if t, err := scheduler.NextRun(st.Schedule, time.Now()); err == nil {
			next = t.Format("2006-01-02 15:04:05 MST")
		}
		PrintTableRow(out, []string{jobName, st.Schedule, next}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.SetRetryPolicy(0, 0)

	fmt.Fprintf(cmd.OutOrStdout(), "Running job: %s\n", jobName)
	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s finished in %s", jobName, result.Duration))
	return nil
}

func initApp() (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(context.Background(), cfg, log, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	return a, nil
}

// initScheduler registers the jobs the configuration enables
func initScheduler(a *app.App) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.Logger)

	if err := sched.AddJob(jobs.NewCachePurgeJob(a.Cache, a.Logger)); err != nil {
		return nil, err
	}

	if f := a.Config.ScheduleRequestsFile; f != "" {
		job := jobs.NewAcquisitionJob(a.Engine, f, a.Config.ScheduleOutputDir, a.Logger)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	} else {
		a.Logger.Debug("SCHEDULE_REQUESTS_FILE not set; scheduled_acquisition disabled")
	}

	return sched, nil
}
