package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
)

const maxQueryValueLength = 64

// QueryString returns the query value with surrounding space and control
// characters removed, truncated to maxQueryValueLength runes.
func QueryString(r *http.Request, key string) string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, ch := range raw {
		if unicode.IsControl(ch) {
			continue
		}
		if n == maxQueryValueLength {
			break
		}
		b.WriteRune(ch)
		n++
	}
	return b.String()
}

// ParseQueryInt reads an integer query value bounded by [min, max], falling
// back to defaultVal when the key is absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := QueryString(r, key)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}
