package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/app"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/engine"
)

// acquireCmd represents the acquire command
var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "요청 파일로 계약 수집 실행",
	Long: `Reads strategy requests and acquires one result row per request.

The input is a JSON array of requests, or an object with a "requests" array:
  [{"ticker":"AAPL","strategy_name":"LongCall","strategy_type":"Directional","confidence_score":0.8}]

Without --output the run is written to stdout and the summary to stderr.

Example:
  go run ./cmd/optacq acquire --input requests.json --output results.json
  cat requests.json | go run ./cmd/optacq acquire --input -`,
	RunE: runAcquire,
}

var (
	acquireInput  string
	acquireOutput string
	acquireNoSink bool
)

func init() {
	rootCmd.AddCommand(acquireCmd)

	acquireCmd.Flags().StringVarP(&acquireInput, "input", "i", "", "request file (- for stdin)")
	acquireCmd.Flags().StringVarP(&acquireOutput, "output", "o", "", "result file (default stdout)")
	acquireCmd.Flags().BoolVar(&acquireNoSink, "no-sink", false, "do not write the run to PostgreSQL")
	_ = acquireCmd.MarkFlagRequired("input")
}

func runAcquire(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reqs, err := readRequests(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{NoSink: acquireNoSink})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer a.Close()

	run, runErr := a.Engine.Run(ctx, reqs)
	if run == nil {
		return fmt.Errorf("acquisition failed: %w", runErr)
	}

	summary := cmd.OutOrStdout()
	if acquireOutput == "" {
		summary = cmd.ErrOrStderr()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	} else if err := engine.WriteRun(acquireOutput, run); err != nil {
		return err
	}

	PrintRunSummary(summary, run)
	if acquireOutput != "" {
		PrintSuccess(summary, fmt.Sprintf("%d results written to %s", len(run.Results), acquireOutput))
	}
	if errors.Is(runErr, engine.ErrSink) {
		PrintWarning(summary, runErr.Error())
	}
	return nil
}

func readRequests(cmd *cobra.Command) ([]contracts.StrategyTimeframeRequest, error) {
	if acquireInput == "-" {
		return engine.DecodeRequests(cmd.InOrStdin())
	}
	return engine.LoadRequests(acquireInput)
}
