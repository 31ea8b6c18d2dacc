// Package event defines the domain event envelope, the card event payloads,
// the publish contract between the pile engine and its transport, and an
// in-memory bus that isolates subscriber failures into an audit trail.
package event

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/skyoxu/rouge/internal/fault"
)

// Envelope constants.
const (
	SpecVersion     = "1.0"
	DataContentType = "application/json"
)

// typePattern is core.<domain>.<verb>.
var typePattern = regexp.MustCompile(`^core\.[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Envelope is an immutable, serializable domain event.
//
// Data always holds a JSON object. Envelopes built with NewEnvelope carry
// canonical JSON, so identical payloads produce identical bytes.
type Envelope struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Data            string    `json:"data"`
	Timestamp       time.Time `json:"time"`
	SpecVersion     string    `json:"specversion"`
	DataContentType string    `json:"datacontenttype"`
}

// Payload is an event body that knows its own type.
type Payload interface {
	EventType() string
	Fields() map[string]any
}

// NewEnvelope serializes payload canonically and wraps it with the given
// id, source and timestamp. The timestamp is converted to UTC.
func NewEnvelope(id, source string, payload Payload, ts time.Time) (Envelope, error) {
	if payload == nil {
		return Envelope{}, fault.NilArgument("payload")
	}
	data, err := MarshalCanonical(payload.Fields())
	if err != nil {
		return Envelope{}, fault.InvalidArgument("payload", "encode %s: %v", payload.EventType(), err)
	}
	env := Envelope{
		ID:              id,
		Type:            payload.EventType(),
		Source:          source,
		Data:            string(data),
		Timestamp:       ts.UTC(),
		SpecVersion:     SpecVersion,
		DataContentType: DataContentType,
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks the envelope invariants.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fault.InvalidArgument("id", "envelope id must not be empty")
	}
	if strings.TrimSpace(e.Source) == "" {
		return fault.InvalidArgument("source", "envelope source must not be empty")
	}
	if !ValidType(e.Type) {
		return fault.InvalidArgument("type", "event type %q must match core.<domain>.<verb>", e.Type)
	}
	if !isJSONObject(e.Data) {
		return fault.InvalidArgument("data", "event data must be a JSON object")
	}
	if e.Timestamp.Location() != time.UTC {
		return fault.InvalidArgument("time", "timestamp must be UTC")
	}
	if e.SpecVersion != SpecVersion {
		return fault.InvalidArgument("specversion", "spec version must be %q, got %q", SpecVersion, e.SpecVersion)
	}
	if e.DataContentType != DataContentType {
		return fault.InvalidArgument("datacontenttype", "content type must be %q, got %q", DataContentType, e.DataContentType)
	}
	return nil
}

// ValidType reports whether t has the core.<domain>.<verb> shape.
func ValidType(t string) bool {
	return typePattern.MatchString(t)
}

func isJSONObject(s string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return false
	}
	return obj != nil
}
