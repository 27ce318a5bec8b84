// Package event implements the typed publish/subscribe bus used for
// connection lifecycle notifications.
//
// The bus fans out to the listeners registered at publish time. Dispatch
// iterates over a snapshot of the listener set, so a callback may remove
// itself or any other listener without corrupting the iteration. A panicking
// listener never prevents delivery to the remaining listeners; the panic is
// recovered and handed to the bus reporter.
//
// There is no event history: a listener registered after a publish does not
// see that publish.
package event
