// Package transport provides the byte carriers underneath a securelink
// connection.
//
// The connection layer never touches a socket: it hands complete frames to
// a Transport and receives complete inbound frames through a registered
// handler. Three carriers ship with the package: an in-memory pipe pair
// for tests and demos, a length-prefixed TCP transport, and a WebSocket
// transport. All of them deliver each frame exactly once, in order.
package transport
