package adminclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/types"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("admin api unavailable")

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status     int
	Code       string
	Message    string
	Details    json.RawMessage
	RequestID  string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("admin api %d %s: %s (request %s)", e.Status, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("admin api %d %s: %s", e.Status, e.Code, e.Message)
}

// Temporary reports whether the server failed rather than rejected the call.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

// CooldownError is returned when a refresh hits an active cooldown window.
type CooldownError struct {
	*APIError
	MetricType     enums.MetricType
	Remaining      time.Duration
	CooldownStatus map[enums.MetricType]types.CooldownInfo
}

func (e *CooldownError) Unwrap() error {
	return e.APIError
}

type cooldownDetails struct {
	MetricType          enums.MetricType                        `json:"metricType"`
	CooldownRemainingMs int64                                   `json:"cooldownRemainingMs"`
	CooldownStatus      map[enums.MetricType]types.CooldownInfo `json:"cooldownStatus"`
}

func newCooldownError(apiErr *APIError) *CooldownError {
	out := &CooldownError{APIError: apiErr, Remaining: apiErr.RetryAfter}
	var details cooldownDetails
	if len(apiErr.Details) > 0 && json.Unmarshal(apiErr.Details, &details) == nil {
		out.MetricType = details.MetricType
		out.CooldownStatus = details.CooldownStatus
		if details.CooldownRemainingMs > 0 {
			out.Remaining = time.Duration(details.CooldownRemainingMs) * time.Millisecond
		}
	}
	return out
}

// IsCooldown extracts a CooldownError from err's chain.
func IsCooldown(err error) (*CooldownError, bool) {
	var cooldown *CooldownError
	if errors.As(err, &cooldown) {
		return cooldown, true
	}
	return nil, false
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code pkgerrors.Code) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == string(code)
}
