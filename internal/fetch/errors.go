package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/pkg/httputil"
)

// Providers wrap these so the client can classify failures
var (
	ErrTimeout          = errors.New("upstream timeout")
	ErrRateLimited      = errors.New("upstream rate limited")
	ErrUnauthorized     = errors.New("upstream authentication failed")
	ErrInsufficientData = errors.New("upstream returned insufficient data")
)

// Classify maps a provider error onto a fetch status.
// Anything unrecognised is UNKNOWN, which is retried like a network error.
func Classify(err error) contracts.FetchStatus {
	if err == nil {
		return contracts.FetchOK
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return contracts.FetchAuthError
	case errors.Is(err, ErrRateLimited):
		return contracts.FetchRateLimit
	case errors.Is(err, ErrInsufficientData):
		return contracts.FetchInsufficientData
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return contracts.FetchTimeout
	}

	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		return classifyHTTP(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return contracts.FetchTimeout
	}

	return contracts.FetchUnknown
}

func classifyHTTP(code int) contracts.FetchStatus {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return contracts.FetchAuthError
	case http.StatusTooManyRequests:
		return contracts.FetchRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return contracts.FetchTimeout
	case http.StatusNoContent, http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		// 요청한 종목/만기에 데이터 없음 (재시도 무의미)
		return contracts.FetchInsufficientData
	}
	if !httputil.IsRetryableError(code) {
		// 기타 4xx: 재시도로 해결되지 않음
		return contracts.FetchInsufficientData
	}
	return contracts.FetchUnknown
}
