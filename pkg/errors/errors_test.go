package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeCooldown, status: http.StatusTooManyRequests, publicMsg: "refresh is cooling down", retryable: true, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeRefreshFailed, status: http.StatusInternalServerError, publicMsg: "analytics refresh failed", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.publicMsg, meta.PublicMessage)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing period")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing period", base.Message())
	assert.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "period"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load orders")
	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeDependency, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeCooldown, "net_revenue cooling down"))
	got := As(err)
	require.NotNil(t, got)
	assert.Equal(t, CodeCooldown, got.Code())
	assert.True(t, HasCode(err, CodeCooldown))
	assert.False(t, HasCode(err, CodeInternal))
	assert.Nil(t, As(nil))
	assert.False(t, HasCode(stdErrors.New("plain"), CodeInternal))
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("refresh: %w", Wrap(CodeRefreshFailed, stdErrors.New("db down"), "calculate"))
	dump := Dump(err)
	assert.Equal(t, CodeRefreshFailed, dump.Code)
	assert.Len(t, dump.Chain, 3)
	assert.Nil(t, dump.DB)
	assert.NotContains(t, dump.Fields(), "db_code")
}

func TestDumpExtractsDriverErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "analytics_snapshots_metric_type_key", TableName: "analytics_snapshots", Message: "duplicate key"}
	dump := Dump(fmt.Errorf("upsert snapshot: %w", pgErr))
	require.NotNil(t, dump.DB)
	assert.Equal(t, "pgx", dump.DB.Driver)
	assert.Equal(t, "23505", dump.DB.Code)
	assert.Equal(t, "analytics_snapshots", dump.Fields()["db_table"])

	pqErr := &pq.Error{Code: "40001", Message: "could not serialize access"}
	dump = Dump(Wrap(CodeDependency, pqErr, "refresh"))
	require.NotNil(t, dump.DB)
	assert.Equal(t, "pq", dump.DB.Driver)
	assert.Equal(t, "40001", dump.DB.Code)
	assert.Equal(t, CodeDependency, dump.Code)
}

func TestWithDetailMergesIntoMap(t *testing.T) {
	err := New(CodeRefreshFailed, "top_products failed").
		WithDetail("metricType", "top_products").
		WithDetail("runId", "r-1")
	assert.Equal(t, map[string]any{"metricType": "top_products", "runId": "r-1"}, err.Details())

	replaced := New(CodeValidation, "bad").WithDetails([]string{"x"}).WithDetail("field", "metric")
	assert.Equal(t, map[string]any{"field": "metric"}, replaced.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetail("k", "v"))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.True(t, Retryable(stdErrors.New("plain")))
	assert.True(t, Retryable(New(CodeDependency, "redis down")))
	assert.False(t, Retryable(New(CodeValidation, "bad metric")))
	assert.True(t, Retryable(fmt.Errorf("wrapped: %w", New(CodeCooldown, "wait"))))
}
