package clob

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is an error response from the CLOB API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clob: status %d: %s", e.Status, e.Message)
}

// fatalFragments mark misconfiguration rather than transient load. Requests
// failing with these are never retried.
var fatalFragments = []string{"unauthorized", "invalid", "missing", "cannot"}

// IsFatal reports whether err indicates an authorization or validation
// failure that retrying cannot fix.
func IsFatal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range fatalFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
