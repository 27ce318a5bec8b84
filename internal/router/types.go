package router

import (
	"encoding/json"
	"time"
)

// Envelope is the generic framing of a decoded stream payload.
type Envelope struct {
	Type string          `json:"type"`
	SID  int64           `json:"sid,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
	Msg  json.RawMessage `json:"msg,omitempty"`

	// ReceivedAt is stamped by the router when the payload arrives.
	ReceivedAt time.Time `json:"-"`
}

// Handler consumes decoded envelopes of a single type.
type Handler func(env Envelope)

// RawHandler consumes payloads that could not be decoded or had no
// registered handler.
type RawHandler func(data []byte)

// Stats contains routing counters.
type Stats struct {
	Received    int64
	Routed      int64
	RawFallback int64
}
