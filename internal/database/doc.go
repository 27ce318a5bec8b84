// Package database provides connection pool management for the PostgreSQL
// archive that the recorder writes raw stream payloads into.
package database
