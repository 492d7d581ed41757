// Package securelink implements an encrypted, authenticated,
// replay-protected channel between two endpoints.
//
// A connection performs an ephemeral X25519 handshake, derives AES-256-GCM
// and HMAC-SHA256 session keys with HKDF, and exchanges framed messages
// with strictly monotonic sequence numbers over an abstract byte
// transport. This package provides the connection state machine that ties
// together the crypto, wire, and transport subpackages.
//
// # Getting Started
//
// Create two connections over a transport pair and set up callbacks:
//
//	a, b := transport.Pipe()
//
//	server, err := securelink.New(b, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.OnMessage(func(data []byte) {
//	    fmt.Printf("received: %s\n", data)
//	})
//
//	client, err := securelink.New(a, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Blocks until the peer acknowledges.
//	if err := client.Send([]byte("ping")); err != nil {
//	    log.Fatal(err)
//	}
//
// Each connection owns an ephemeral key pair that is never persisted, so a
// compromised long-term secret cannot expose past sessions.
package securelink
