package responses

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/types"
)

// RequestIDHeader is set on every response by the request id middleware and
// echoed into error bodies.
const RequestIDHeader = "X-Request-Id"

// fallbackBody is written when the real payload cannot be encoded.
var fallbackBody = []byte(`{"success":false,"message":"internal server error","error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`)

// clientVisible lists codes whose own message is safe to show callers.
var clientVisible = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:   true,
	pkgerrors.CodeForbidden:    true,
	pkgerrors.CodeUnauthorized: true,
	pkgerrors.CodeNotFound:     true,
	pkgerrors.CodeConflict:     true,
	pkgerrors.CodeCooldown:     true,
	pkgerrors.CodeRateLimit:    true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data, "")
}

// WriteSuccessMessage attaches a human readable message next to the payload.
func WriteSuccessMessage(w http.ResponseWriter, data any, message string) {
	WriteSuccessStatus(w, http.StatusOK, data, message)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Data: data, Message: message})
}

// WriteError renders err as an error envelope. Errors without a code become
// INTERNAL_ERROR and only client-visible codes keep their own message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if clientVisible[typed.Code()] && typed.Message() != "" {
		msg = typed.Message()
	}
	apiErr := types.APIError{
		Code:      string(typed.Code()),
		Message:   msg,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil {
		logFailure(ctx, logg, err, typed, meta.HTTPStatus)
	}
	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Success: false, Message: msg, Error: apiErr})
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error, status int) {
	fields := pkgerrors.Dump(err).Fields()
	fields["status"] = status
	if details, ok := typed.Details().(map[string]any); ok {
		if metric, ok := details["metricType"]; ok {
			fields["metric_type"] = metric
		}
	}
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, fallbackBody
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
