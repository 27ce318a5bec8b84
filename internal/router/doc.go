// Package router dispatches inbound stream payloads to channel-specific
// handlers.
//
// The connection client hands every arriving payload to a Router. The
// router decodes the envelope, looks up the handler registered for the
// envelope type, and invokes it. Payloads that fail to decode, or whose
// type has no handler, are forwarded unchanged to the raw handler: nothing
// is thrown away silently.
//
// Queue is a growable FIFO used to decouple slow consumers (such as the
// archive recorder) from the dispatch path.
package router
