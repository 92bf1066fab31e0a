package contracts

import "time"

// FetchStatus classifies one upstream call after its retry budget
type FetchStatus string

const (
	FetchOK               FetchStatus = "OK"
	FetchTimeout          FetchStatus = "TIMEOUT"
	FetchRateLimit        FetchStatus = "RATE_LIMIT"
	FetchAuthError        FetchStatus = "AUTH_ERROR"
	FetchInsufficientData FetchStatus = "INSUFFICIENT_DATA"
	FetchUnknown          FetchStatus = "UNKNOWN"

	// FetchSkipped means no upstream call was attempted (batch aborted)
	FetchSkipped FetchStatus = "SKIPPED"
)

// Transient reports whether the status may resolve on retry
func (s FetchStatus) Transient() bool {
	return s == FetchTimeout || s == FetchRateLimit || s == FetchUnknown
}

// AcquisitionStatus is the explicit outcome of one output row
type AcquisitionStatus string

const (
	// Selection outcomes
	StatusSuccess           AcquisitionStatus = "Success"
	StatusNoExpirations     AcquisitionStatus = "No_Expirations_In_Window"
	StatusLowLiquidity      AcquisitionStatus = "Low_Liquidity"
	StatusNoSuitableStrikes AcquisitionStatus = "No_Suitable_Strikes"

	// Fetch outcomes (retry budget exhausted or terminal)
	StatusTimeout          AcquisitionStatus = "Timeout"
	StatusRateLimited      AcquisitionStatus = "Rate_Limited"
	StatusAuthError        AcquisitionStatus = "Auth_Error"
	StatusInsufficientData AcquisitionStatus = "Insufficient_Data"
	StatusFetchFailed      AcquisitionStatus = "Fetch_Failed"

	// StatusAbortedAuth marks rows skipped after an auth failure aborted the batch
	StatusAbortedAuth AcquisitionStatus = "Aborted_Auth"

	// StatusInvalidRequest marks a malformed input row; it is still reported
	StatusInvalidRequest AcquisitionStatus = "Invalid_Request"
)

// IsUsable reports whether downstream scoring may consume the row.
// Anything else means "insufficient data for scoring", never zero values.
func (s AcquisitionStatus) IsUsable() bool {
	return s == StatusSuccess
}

// StatusFromSelection maps a selection outcome onto the row status
func StatusFromSelection(s SelectionStatus) AcquisitionStatus {
	switch s {
	case SelectionSuccess:
		return StatusSuccess
	case SelectionNoExpirations:
		return StatusNoExpirations
	case SelectionLowLiquidity:
		return StatusLowLiquidity
	default:
		return StatusNoSuitableStrikes
	}
}

// StatusFromFetch maps a failed fetch onto the row status
func StatusFromFetch(s FetchStatus) AcquisitionStatus {
	switch s {
	case FetchTimeout:
		return StatusTimeout
	case FetchRateLimit:
		return StatusRateLimited
	case FetchAuthError:
		return StatusAuthError
	case FetchInsufficientData:
		return StatusInsufficientData
	case FetchSkipped:
		return StatusAbortedAuth
	default:
		return StatusFetchFailed
	}
}

// AcquisitionResult is the output row for exactly one input request.
// ⭐ SSOT: 입력 1행 = 출력 1행, 실패도 상태로 표현 (행 누락 금지)
type AcquisitionResult struct {
	RequestIdentity   int                      `json:"request_identity"` // index into the input slice
	Request           StrategyTimeframeRequest `json:"request"`
	Timeframe         TimeframeWindow          `json:"timeframe"`
	Contracts         []SelectedContract       `json:"contracts"`
	Status            AcquisitionStatus        `json:"status"`
	FetchStatus       FetchStatus              `json:"fetch_status"`
	WorkerID          int                      `json:"worker_id"`
	ProcessingTimeSec float64                  `json:"processing_time_sec"`
	CacheHit          bool                     `json:"cache_hit"`
	AsOf              time.Time                `json:"as_of"`
	Error             string                   `json:"error,omitempty"`
}

// PrimaryExpiration returns the first leg's expiration, or zero time
func (r *AcquisitionResult) PrimaryExpiration() time.Time {
	if len(r.Contracts) == 0 {
		return time.Time{}
	}
	return r.Contracts[0].Expiration
}
