package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine
// parsing. All -o json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError is the machine-readable form of a command failure.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeHostNotFound   = "HOST_NOT_FOUND"
	ErrCodeAPIUnavailable = "API_UNAVAILABLE"
	ErrCodeAPIAuth        = "API_AUTH_FAILED"
	ErrCodeTunnelFailed   = "TUNNEL_FAILED"
	ErrCodeTunnelHostKey  = "TUNNEL_HOST_KEY"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnknown        = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError writes err as a failed response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts an error to a JSONError with a mapped code.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		out := &JSONError{
			Code:       mapErrorCode(hwErr.Code, hwErr.Message),
			Message:    hwErr.Message,
			Suggestion: hwErr.Suggestion,
		}
		if hwErr.Cause != nil {
			out.Cause = hwErr.Cause.Error()
		}
		return out
	}

	return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	msg := strings.ToLower(message)

	switch internalCode {
	case errors.ErrConfig:
		switch {
		case strings.Contains(msg, "not found"):
			return ErrCodeConfigNotFound
		case strings.Contains(msg, "isn't in your config"):
			return ErrCodeHostNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrAPI:
		if strings.Contains(msg, "http 401") || strings.Contains(msg, "http 403") {
			return ErrCodeAPIAuth
		}
		return ErrCodeAPIUnavailable
	case errors.ErrTunnel:
		if strings.Contains(msg, "host key") {
			return ErrCodeTunnelHostKey
		}
		return ErrCodeTunnelFailed
	case errors.ErrSync:
		return ErrCodeBadRequest
	}
	return ErrCodeUnknown
}
