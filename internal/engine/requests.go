package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wonny/optacq/internal/contracts"
)

// requestEnvelope is the object form of a request file
type requestEnvelope struct {
	Requests []contracts.StrategyTimeframeRequest `json:"requests"`
}

// DecodeRequests reads either a JSON array of requests or an object with a
// "requests" array. Rows are not validated here; malformed rows become
// Invalid_Request results.
func DecodeRequests(r io.Reader) ([]contracts.StrategyTimeframeRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("requests: empty input")
	}

	if data[0] == '[' {
		var reqs []contracts.StrategyTimeframeRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("decode requests: %w", err)
		}
		return normalizeTypes(reqs), nil
	}

	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	return normalizeTypes(env.Requests), nil
}

// normalizeTypes covers rows that omit strategy_type entirely
func normalizeTypes(reqs []contracts.StrategyTimeframeRequest) []contracts.StrategyTimeframeRequest {
	for i := range reqs {
		reqs[i].StrategyType = contracts.ParseStrategyType(string(reqs[i].StrategyType))
	}
	return reqs
}

// LoadRequests reads a request file
func LoadRequests(path string) ([]contracts.StrategyTimeframeRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open requests: %w", err)
	}
	defer f.Close()
	return DecodeRequests(f)
}

// WriteRun writes run as indented JSON to path, atomically
func WriteRun(path string, run *Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".run-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write run: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close run: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
