package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/cachestats/management"
)

// Transport labels used when recording query metrics
const (
	TransportHTTP   = "http"
	TransportNATS   = "nats"
	TransportStream = "stream"
)

// Frame is one push of a cache's attributes to a stream subscriber. The final
// frame for an unregistered cache carries Code management.CodeNotFound.
type Frame struct {
	ID         string         `json:"id"`
	Sequence   uint64         `json:"sequence"`
	Key        management.Key `json:"key"`
	Timestamp  time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Code       string         `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// NewFrame builds a frame from a view, or a terminal not-found frame once the view is unregistered
func NewFrame(view *management.View, sequence uint64) Frame {
	frame := Frame{
		ID:        uuid.NewString(),
		Sequence:  sequence,
		Key:       view.Key(),
		Timestamp: time.Now().UTC(),
	}

	values, err := view.Attributes()
	if err != nil {
		frame.Code = management.ErrorCode(err)
		frame.Error = err.Error()
		return frame
	}
	frame.Attributes = values
	return frame
}

// Terminal reports whether the frame ends the stream
func (f Frame) Terminal() bool {
	return f.Code != ""
}

// Outcome returns the metrics outcome label for a query response code
func Outcome(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}

// StatusForCode maps a query response code to an HTTP status
func StatusForCode(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case management.CodeNotFound, management.CodeUnknownAttribute:
		return http.StatusNotFound
	case management.CodeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NormalizePrefix ensures an HTTP route prefix starts and ends with "/"
func NormalizePrefix(prefix string) string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
