// Package recorder implements the batch archiver for raw stream payloads.
//
// The recorder consumes payloads from a router queue, accumulates them into
// batches, and writes them to the messages table with append-only semantics
// (never update, only insert). Duplicate message IDs are dropped with
// ON CONFLICT DO NOTHING.
package recorder
