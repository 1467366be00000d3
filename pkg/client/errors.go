package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrNetwork is matched by every NetworkError.
var ErrNetwork = errors.New("network error")

// NetworkError is returned when the backend answers with a non-success status.
// Its message is the transport status text.
type NetworkError struct {
	Op         string // Client operation (e.g., "SaveIntegration")
	Method     string
	URL        string
	StatusCode int
	Status     string // Status text, e.g. "Not Found"
}

func (e *NetworkError) Error() string {
	return e.Status
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// Detail describes the failed call for logs.
func (e *NetworkError) Detail() string {
	return fmt.Sprintf("%s %s %s: %d %s", e.Op, e.Method, e.URL, e.StatusCode, e.Status)
}

// IsNetworkError checks if an error came from a non-success backend response.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsNotFound checks if the backend answered 404.
func IsNotFound(err error) bool {
	var netErr *NetworkError

	return errors.As(err, &netErr) && netErr.StatusCode == http.StatusNotFound
}

func newNetworkError(op string, req *http.Request, resp *http.Response) *NetworkError {
	return &NetworkError{
		Op:         op,
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
	}
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}

	return text
}
