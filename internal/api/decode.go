package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// scanTimestampField is present on every record of every kind.
const scanTimestampField = "scan_timestamp"

// timestampLayouts are tried in order when parsing scan_timestamp. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// envelope is the response wrapper shared by every monitoring endpoint.
type envelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message,omitempty"`
	Data    map[string]json.RawMessage `json:"data"`
}

// decodeEnvelope reads the response wrapper. A success=false body becomes an
// API error carrying the server's message.
func decodeEnvelope(r io.Reader, kind monitor.Kind) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Malformed %s response from monitoring API", kind),
			"The host may be running an incompatible API version")
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "no message"
		}
		return nil, errors.New(errors.ErrAPI,
			fmt.Sprintf("Monitoring API rejected %s query: %s", kind, msg), "")
	}
	return &env, nil
}

// decodeEnvelopeLoose reads the wrapper without checking success, for
// pulling a message out of an error response.
func decodeEnvelopeLoose(r io.Reader) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// decodeSamples turns the record array under ep.dataKey into raw samples.
// Numbers are kept as json.Number so large counters survive intact. Records
// with a missing or unparseable scan_timestamp are skipped.
func decodeSamples(env *envelope, kind monitor.Kind, ep endpoint, log logger.Logger) ([]monitor.RawSample, error) {
	raw, ok := env.Data[ep.dataKey]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		log.Debug("%s response has no %q array", kind, ep.dataKey)
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Malformed %s records from monitoring API", kind),
			fmt.Sprintf("Expected data.%s to be an array of objects", ep.dataKey))
	}

	samples := make([]monitor.RawSample, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if rec == nil {
			skipped++
			continue
		}
		ts, ok := parseTimestamp(rec[scanTimestampField])
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, monitor.RawSample{
			Entity:        entityKey(rec, ep),
			ScanTimestamp: ts,
			Fields:        rec,
		})
	}
	if skipped > 0 {
		log.Debug("%s: skipped %d records without a usable %s", kind, skipped, scanTimestampField)
	}
	return samples, nil
}

// entityKey returns the record's entity, or "" for host-wide kinds.
func entityKey(rec map[string]any, ep endpoint) string {
	for _, field := range ep.entityFields {
		switch v := rec[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func parseTimestamp(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
