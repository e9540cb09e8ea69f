package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carepoints/schedule"
	"github.com/warp/carepoints/session"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := mockClient(hub), mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ClientCount())

	// Second unregister must not close the channel twice
	hub.Unregister(c1)
	hub.Unregister(c2)
	assert.Zero(t, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := mockClient(hub), mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage(session.Change{
		Op: "redeem", Entity: session.EntityCoupon, Action: session.ActionCreated, ID: "c-1",
	}))

	for _, c := range []*Client{c1, c2} {
		msg := receive(t, c)
		assert.Equal(t, "coupon_created", msg.Type)
		assert.Equal(t, "c-1", msg.ID)
		assert.Equal(t, "redeem", msg.Op)
	}
}

func TestHub_BroadcastFullBufferDrops(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub)
	hub.Register(c)

	for range sendBufferSize + 3 {
		hub.Broadcast(Message{Type: "fill"})
	}
	assert.Len(t, c.send, sendBufferSize)
}

func TestHandler_PublishesSessionChanges(t *testing.T) {
	// GIVEN: A hub client and a handler wired to the session
	// WHEN: A command changes state through the API
	// THEN: The client receives the change

	h, router := newTestRouter(t)
	c := mockClient(h.Hub)
	h.Hub.Register(c)
	defer h.Hub.Unregister(c)

	a := addActivity(t, router, "Bath", schedule.CategoryBath, "19:00")

	msg := receive(t, c)
	assert.Equal(t, "activity_created", msg.Type)
	assert.Equal(t, a.ID, msg.ID)
	assert.Equal(t, "add_activity", msg.Op)

	// A no-op command publishes nothing
	do(t, router, http.MethodPost, "/api/activities/missing/toggle", nil)
	assert.Empty(t, c.send)
}

func TestHandler_PatchPublishesOnce(t *testing.T) {
	h, router := newTestRouter(t)
	a := addActivity(t, router, "Nap", schedule.CategoryNap, "13:00")

	c := mockClient(h.Hub)
	h.Hub.Register(c)
	defer h.Hub.Unregister(c)

	title, clock := "Long nap", "14:15"
	rec := do(t, router, http.MethodPatch, "/api/activities/"+a.ID, UpdateActivityRequest{Title: &title, Time: &clock})
	require.Equal(t, http.StatusOK, rec.Code)

	msg := receive(t, c)
	assert.Equal(t, "activity_updated", msg.Type)
	assert.Equal(t, "update_activity", msg.Op)
	assert.Empty(t, c.send)
}

func TestServeWS(t *testing.T) {
	h, router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return h.Hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.Session.Dispatch(session.SetTab{Tab: session.TabYear})
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "view_updated", msg.Type)
	assert.Equal(t, "set_tab", msg.Op)

	conn.Close(ws.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return h.Hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
