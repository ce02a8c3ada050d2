package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x&big=900", nil)

	v, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	v, err = ParseQueryInt(req, "missing", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = ParseQueryInt(req, "bad", 10, 1, 100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "big", 10, 1, 100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestQueryStringTrims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?period=%20This%20Week%20", nil)
	assert.Equal(t, "This Week", QueryString(req, "period"))
}

func TestQueryStringDropsControlAndCaps(t *testing.T) {
	long := strings.Repeat("a", maxQueryValueLength+10)
	req := httptest.NewRequest(http.MethodGet, "/?metric=sa%00les&long="+long, nil)
	assert.Equal(t, "sales", QueryString(req, "metric"))
	assert.Len(t, QueryString(req, "long"), maxQueryValueLength)
	assert.Empty(t, QueryString(req, "absent"))
}

type sampleQuery struct {
	Metric string `query:"metric" validate:"omitempty,oneof=a b"`
}

func TestStructReportsFieldDetails(t *testing.T) {
	require.NoError(t, Struct(sampleQuery{Metric: "a"}))
	require.NoError(t, Struct(sampleQuery{}))

	err := Struct(sampleQuery{Metric: "z"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"metric": "must be one of [a b]"}, typed.Details())
}
