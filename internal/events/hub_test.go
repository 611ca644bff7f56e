package events_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
	"github.com/tsukiblade/SimpleTaskManager/internal/events"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wireEvent struct {
	Event  string `json:"event"`
	TaskID int64  `json:"task_id"`
	Task   *struct {
		ID        int64   `json:"id"`
		Title     *string `json:"title"`
		Completed bool    `json:"completed"`
	} `json:"task"`
}

func connect(t *testing.T, hub *events.Hub, want int) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev wireEvent
	require.NoError(t, json.Unmarshal(data, &ev), "data=%s", data)
	return ev
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	a := connect(t, hub, 1)
	b := connect(t, hub, 2)

	title := "Walk the dog"
	hub.Publish(events.Event{
		Type:   events.TaskCompleted,
		TaskID: 1,
		Task:   &dom.Task{ID: 1, Title: &title, Completed: true},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, events.TaskCompleted, ev.Event)
		assert.Equal(t, int64(1), ev.TaskID)
		require.NotNil(t, ev.Task)
		assert.Equal(t, "Walk the dog", *ev.Task.Title)
		assert.True(t, ev.Task.Completed)
	}
}

func TestHub_DeleteEventHasNoTask(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	conn := connect(t, hub, 1)

	hub.Publish(events.Event{Type: events.TaskDeleted, TaskID: 7})

	ev := readEvent(t, conn)
	assert.Equal(t, events.TaskDeleted, ev.Event)
	assert.Equal(t, int64(7), ev.TaskID)
	assert.Nil(t, ev.Task)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	conn := connect(t, hub, 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing with nobody listening is a no-op.
	hub.Publish(events.Event{Type: events.TaskCreated, TaskID: 1})
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	conn := connect(t, hub, 1)

	hub.Close(context.Background())
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_StalledClientDoesNotBlockPublish(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	// Never reads, so its TCP buffers fill up.
	connect(t, hub, 1)

	title := strings.Repeat("x", 256<<10)
	task := &dom.Task{ID: 1, Title: &title}

	start := time.Now()
	for i := 0; i < 200; i++ {
		hub.Publish(events.Event{Type: events.TaskUpdated, TaskID: 1, Task: task})
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond,
		"a client that cannot keep up is dropped")
}

func TestHub_CloseStopsAtContextDeadline(t *testing.T) {
	hub := events.NewHub(zap.NewNop().Sugar())
	conn := connect(t, hub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		hub.Close(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after its context was cancelled")
	}
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
