package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds limit/offset pagination parameters extracted from query strings.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultParams returns the defaults used when a request carries no paging.
func DefaultParams() Params {
	return Params{Limit: DefaultLimit}
}

// FromRequest extracts limit and offset from an HTTP request. Values that are
// missing, malformed or out of range fall back to the defaults; limit is
// capped at MaxLimit.
func FromRequest(r *http.Request) Params {
	return FromRequestWithDefault(r, DefaultLimit)
}

// FromRequestWithDefault is FromRequest with a caller-chosen default limit.
func FromRequestWithDefault(r *http.Request, defaultLimit int) Params {
	p := Params{Limit: defaultLimit}
	q := r.URL.Query()

	if limit := q.Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 {
			p.Limit = min(v, MaxLimit)
		}
	}

	if offset := q.Get("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil && v >= 0 {
			p.Offset = v
		}
	}

	return p
}
