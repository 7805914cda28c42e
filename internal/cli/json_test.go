package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"config missing", errors.New(errors.ErrConfig, "Config file not found", ""), ErrCodeConfigNotFound},
		{"host missing", errors.New(errors.ErrConfig, "Host 'x' isn't in your config", ""), ErrCodeHostNotFound},
		{"config invalid", errors.New(errors.ErrConfig, "Unknown window '2hour'", ""), ErrCodeConfigInvalid},
		{"api auth", errors.New(errors.ErrAPI, "cpu query failed: HTTP 401: Unauthorized", ""), ErrCodeAPIAuth},
		{"api down", errors.New(errors.ErrAPI, "All metric requests failed for nas", ""), ErrCodeAPIUnavailable},
		{"tunnel", errors.New(errors.ErrTunnel, "SSH handshake with bastion failed", ""), ErrCodeTunnelFailed},
		{"host key", errors.New(errors.ErrTunnel, "Host key for bastion has changed", ""), ErrCodeTunnelHostKey},
		{"plain", fmt.Errorf("boom"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorToJSON(tt.err).Code)
		})
	}

	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_Fields(t *testing.T) {
	err := errors.WrapWithCode(fmt.Errorf("dial tcp: refused"), errors.ErrAPI,
		"Cannot reach monitoring API at nas:5001", "Check the URL")

	got := ErrorToJSON(err)
	assert.Equal(t, &JSONError{
		Code:       ErrCodeAPIUnavailable,
		Message:    "Cannot reach monitoring API at nas:5001",
		Suggestion: "Check the URL",
		Cause:      "dial tcp: refused",
	}, got)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]int{"points": 3}))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	buf.Reset()
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("boom")))
	assert.Contains(t, buf.String(), `"success": false`)
	assert.Contains(t, buf.String(), `"code": "UNKNOWN"`)
	assert.NotContains(t, buf.String(), `"data"`)
}
