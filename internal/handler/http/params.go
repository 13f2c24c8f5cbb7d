package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const dateLayout = "2006-01-02"

// floatParam parses an optional float query parameter.
func floatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidArgument(name + " must be a number")
	}
	return &v, nil
}

// intParam parses an optional integer query parameter, returning def when
// it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidArgument(name + " must be an integer")
	}
	return v, nil
}

// dateParam parses an optional date query parameter. Both YYYY-MM-DD and
// RFC 3339 are accepted. A bare end date covers the whole day.
func dateParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperrors.InvalidArgument(name + " must be a date (YYYY-MM-DD)")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// listParam collects a list query parameter given either repeated
// (?itemIds=a&itemIds=b) or comma separated (?itemIds=a,b).
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// uuidListParam is listParam for parameters whose entries must be UUIDs.
func uuidListParam(r *http.Request, name string) ([]string, error) {
	ids := listParam(r, name)
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, apperrors.InvalidArgument(name + " must be a list of UUIDs")
		}
	}
	return ids, nil
}
