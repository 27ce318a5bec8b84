// Package subscription tracks the set of active subscriptions for a client
// and builds the wire messages that re-establish them after a reconnect.
//
// The ledger is the authoritative in-memory record: it survives transient
// disconnects and is replayed by the connection client on every transition
// into the connected state. Replay strategies are pluggable because
// channels differ in semantics: some accept incremental batched subscribe
// commands, others require a single authenticated full-state snapshot.
package subscription
