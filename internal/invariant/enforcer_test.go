package invariant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/internal/contracts"
)

var (
	nov20 = time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	dec18 = time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)
)

func row(id int, ticker string, status contracts.AcquisitionStatus, exp time.Time) contracts.AcquisitionResult {
	r := contracts.AcquisitionResult{
		RequestIdentity: id,
		Request:         contracts.StrategyTimeframeRequest{Ticker: ticker},
		Status:          status,
	}
	if status == contracts.StatusSuccess {
		r.Contracts = []contracts.SelectedContract{{Ticker: ticker, Expiration: exp}}
	}
	return r
}

func TestVerify_RowCountMismatch(t *testing.T) {
	e := NewEnforcer(nil)
	_, err := e.Verify(3, []contracts.AcquisitionResult{row(0, "AAPL", contracts.StatusSuccess, nov20)})
	assert.ErrorIs(t, err, ErrRowCountMismatch)
}

func TestVerify_IdentityViolations(t *testing.T) {
	e := NewEnforcer(nil)

	_, err := e.Verify(2, []contracts.AcquisitionResult{
		row(0, "AAPL", contracts.StatusSuccess, nov20),
		row(0, "AAPL", contracts.StatusSuccess, nov20),
	})
	assert.ErrorIs(t, err, ErrIdentityViolation)

	_, err = e.Verify(1, []contracts.AcquisitionResult{row(5, "AAPL", contracts.StatusSuccess, nov20)})
	assert.ErrorIs(t, err, ErrIdentityViolation)
}

func TestVerify_Report(t *testing.T) {
	e := NewEnforcer(nil)
	results := []contracts.AcquisitionResult{
		row(0, "AAPL", contracts.StatusSuccess, nov20),
		row(1, "AAPL", contracts.StatusSuccess, dec18),
		row(2, "AAPL", contracts.StatusLowLiquidity, time.Time{}),
		row(3, "MSFT", contracts.StatusSuccess, nov20),
		row(4, "MSFT", contracts.StatusTimeout, time.Time{}),
		row(5, "NVDA", contracts.StatusSuccess, nov20),
	}

	report, err := e.Verify(len(results), results)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 4, report.Usable)
	assert.Equal(t, 3, report.Tickers)
	assert.Equal(t, 2, report.MultiStrategy)
	assert.Equal(t, 1, report.MultiSuccess)
	assert.InDelta(t, 0.5, report.MultiSuccessRatio, 1e-9)
	assert.Equal(t, 1, report.DiverseExpirations)
	assert.Equal(t, map[contracts.AcquisitionStatus]int{
		contracts.StatusSuccess:      4,
		contracts.StatusLowLiquidity: 1,
		contracts.StatusTimeout:      1,
	}, report.StatusCounts)
	assert.Equal(t, contracts.StatusSuccess, report.SortedStatuses()[0])

	// rows are never touched
	assert.Len(t, results, 6)
}

func TestVerify_Empty(t *testing.T) {
	report, err := NewEnforcer(nil).Verify(0, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.MultiSuccessRatio)
}
