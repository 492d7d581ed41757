package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSPair(t *testing.T) (client, server *WSTransport) {
	t.Helper()

	accepted := make(chan *WSTransport, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr, err := UpgradeWS(w, r)
		if err != nil {
			return
		}
		accepted <- tr
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWS(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("websocket upgrade never completed")
	}
	t.Cleanup(func() { server.Close() })

	return client, server
}

func TestWSTransportRoundTrip(t *testing.T) {
	client, server := newWSPair(t)

	fromClient := make(chan []byte, 1)
	fromServer := make(chan []byte, 1)
	server.RegisterHandler(func(frame []byte) { fromClient <- frame })
	client.RegisterHandler(func(frame []byte) { fromServer <- frame })

	require.NoError(t, client.Send([]byte("over websocket")))
	select {
	case frame := <-fromClient:
		assert.Equal(t, []byte("over websocket"), frame)
	case <-time.After(2 * time.Second):
		t.Fatal("frame never reached server")
	}

	require.NoError(t, server.Send([]byte("and back")))
	select {
	case frame := <-fromServer:
		assert.Equal(t, []byte("and back"), frame)
	case <-time.After(2 * time.Second):
		t.Fatal("frame never reached client")
	}
}

func TestWSTransportSendAfterClose(t *testing.T) {
	client, _ := newWSPair(t)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Send([]byte("x")), ErrTransportClosed)
	assert.NoError(t, client.Close())
}
