package events

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc, chan struct{}) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel, done
}

func TestHubBroadcastsToSubscriber(t *testing.T) {
	hub, url, _, _ := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration happens on the hub goroutine after the handshake
	time.Sleep(100 * time.Millisecond)
	hub.Publish(v1alpha1.EventContentUploaded, map[string]string{"name": "photo.png"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev v1alpha1.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, v1alpha1.EventContentUploaded, ev.Type)
	assert.Equal(t, "photo.png", ev.Data["name"])
}

func TestHubShutdownReleasesSubscribers(t *testing.T) {
	_, url, cancel, done := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(100 * time.Millisecond)

	cancel()
	<-done

	// the hub closed the connection on its way out
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// a subscriber arriving after shutdown is turned away, not parked on
	// the register channel forever
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return
	}
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}
