package event

import (
	"time"

	"github.com/google/uuid"
)

// Wire identifiers for the envelopes this service emits. The background
// stream follows the shared event format (spec_version 1.0, URN source);
// the hello endpoint keeps its historical method-path source and
// "v1.0" spec_version for compatibility with existing consumers.
const (
	SourceBackground      = "urn:service:basic"
	SpecVersionBackground = "1.0"
	TypeBackground        = "basic.service.v1.BackgroundResponseEvent"

	SourceHello      = "basic.v1.BasicService/Hello"
	SpecVersionHello = "v1.0"
	TypeHello        = "basic.service.v1.HelloResponse"
)

// Envelope is the standardized event wrapper carried on every outbound
// message. A fresh value is built per emission and never mutated.
type Envelope struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	SpecVersion string    `json:"spec_version"`
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	Payload     any       `json:"payload"`
}

// Builder stamps payloads into envelopes for a fixed source.
type Builder struct {
	source      string
	specVersion string
	now         func() time.Time
}

// NewBuilder returns a Builder emitting envelopes with the given source
// and spec_version.
func NewBuilder(source, specVersion string) *Builder {
	return &Builder{
		source:      source,
		specVersion: specVersion,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Build wraps payload into a new envelope with a fresh id and the
// current time. The payload is embedded as-is and must not be mutated
// by the caller afterwards.
func (b *Builder) Build(eventType string, payload any) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		Source:      b.source,
		SpecVersion: b.specVersion,
		Type:        eventType,
		Time:        b.now(),
		Payload:     payload,
	}
}
