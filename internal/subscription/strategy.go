package subscription

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mkarlsen/streamsock/internal/auth"
)

// Strategy builds the outbound messages that establish and tear down
// subscriptions. Implementations cover the two replay semantics seen in the
// wild: incremental batched commands, and authenticated full-state
// snapshots.
type Strategy interface {
	// Incremental reports whether the channel accepts per-entry subscribe
	// and unsubscribe commands while connected. When false, any change to
	// the ledger is communicated by re-sending the full snapshot.
	Incremental() bool

	// Subscribe builds the message adding the given entries.
	Subscribe(entries []Entry) ([]byte, error)

	// Unsubscribe builds the message removing the given entries.
	Unsubscribe(entries []Entry) ([]byte, error)

	// Replay builds the single message re-establishing every entry after
	// a (re)connect.
	Replay(entries []Entry) ([]byte, error)
}

// command is the generic wire envelope for subscription traffic.
type command struct {
	Op      string  `json:"op"`
	Entries []Entry `json:"entries"`

	// Snapshot authentication fields, present only for signed replay.
	KeyID     string `json:"key_id,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
	Signature string `json:"sig,omitempty"`
}

// sortedByKey returns entries ordered by key. Replay iterates a set, so
// order carries no meaning on the wire; sorting just makes payloads
// deterministic for logging and tests.
func sortedByKey(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BatchStrategy speaks the incremental protocol: one batched subscribe
// command enumerating the affected entries. Replay is a single subscribe
// carrying the whole ledger.
type BatchStrategy struct{}

// NewBatchStrategy creates the incremental strategy.
func NewBatchStrategy() *BatchStrategy { return &BatchStrategy{} }

func (*BatchStrategy) Incremental() bool { return true }

func (*BatchStrategy) Subscribe(entries []Entry) ([]byte, error) {
	return json.Marshal(command{Op: "subscribe", Entries: sortedByKey(entries)})
}

func (*BatchStrategy) Unsubscribe(entries []Entry) ([]byte, error) {
	return json.Marshal(command{Op: "unsubscribe", Entries: sortedByKey(entries)})
}

func (*BatchStrategy) Replay(entries []Entry) ([]byte, error) {
	return json.Marshal(command{Op: "subscribe", Entries: sortedByKey(entries)})
}

// SnapshotStrategy speaks the atomic full-state protocol: every change and
// every replay is a single signed message describing the complete desired
// subscription set. The server replaces its view wholesale, so there are no
// incremental commands.
type SnapshotStrategy struct {
	creds *auth.Credentials

	// now is swappable for tests.
	now func() time.Time
}

// NewSnapshotStrategy creates the full-state strategy. Credentials may be
// nil, producing unsigned snapshots.
func NewSnapshotStrategy(creds *auth.Credentials) *SnapshotStrategy {
	return &SnapshotStrategy{creds: creds, now: time.Now}
}

func (*SnapshotStrategy) Incremental() bool { return false }

func (s *SnapshotStrategy) Subscribe(entries []Entry) ([]byte, error) {
	return s.Replay(entries)
}

func (s *SnapshotStrategy) Unsubscribe(entries []Entry) ([]byte, error) {
	return s.Replay(entries)
}

func (s *SnapshotStrategy) Replay(entries []Entry) ([]byte, error) {
	cmd := command{Op: "snapshot", Entries: sortedByKey(entries)}

	if s.creds != nil {
		ts := s.now().UnixMilli()
		keys := ""
		for _, e := range cmd.Entries {
			keys += e.Key + "\n"
		}
		sig, err := s.creds.Sign(fmt.Sprintf("%dsnapshot%s", ts, keys))
		if err != nil {
			return nil, fmt.Errorf("sign snapshot: %w", err)
		}
		cmd.KeyID = s.creds.KeyID
		cmd.Timestamp = ts
		cmd.Signature = sig
	}

	return json.Marshal(cmd)
}
