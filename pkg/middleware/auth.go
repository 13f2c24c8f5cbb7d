package middleware

import (
	"net/http"
	"strings"

	"github.com/MichaelKMarwa/recupio/pkg/httputil"
)

// GuestSessionHeader carries a guest session id.
const GuestSessionHeader = "X-Guest-Session"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GuestSessionID returns the guest session header value, if any.
func GuestSessionID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(GuestSessionHeader))
	return id, id != ""
}

// ContentTypeJSON rejects POST, PUT and PATCH requests whose body is not
// declared as application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if r.ContentLength != 0 && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
