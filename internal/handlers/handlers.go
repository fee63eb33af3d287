package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fremancer/fremancer/internal/auth"
)

const dateLayout = "2006-01-02"

// pathID parses the {id} segment of the route pattern.
func pathID(r *http.Request) (uint, bool) {
	id64, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// caller returns the authenticated user id. Routes behind RequireAuth
// always have one.
func caller(r *http.Request) uint {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// queryUint reads an optional numeric query parameter.
func queryUint(r *http.Request, key string) *uint {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	id64, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	id := uint(id64)
	return &id
}
