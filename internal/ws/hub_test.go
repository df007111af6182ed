package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cateradmin/api/internal/enum"
	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, sessionID uuid.UUID) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := uuid.New()
	client := mockClient(hub, sessionID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[sessionID] == nil {
		t.Fatal("session room not created")
	}
	if !hub.rooms[sessionID][client] {
		t.Fatal("client not registered in session room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := uuid.New()
	client1 := mockClient(hub, sessionID)
	client2 := mockClient(hub, sessionID)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[sessionID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[sessionID]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[sessionID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastToSession_Isolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	session1 := uuid.New()
	session2 := uuid.New()
	watchers := []*Client{mockClient(hub, session1), mockClient(hub, session1)}
	other := mockClient(hub, session2)

	for _, c := range append(watchers, other) {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	payload := json.RawMessage(`{"item_id":"7","partition":"superfast=1"}`)
	hub.BroadcastToSession(session1, Event{Type: enum.EventPositionMoved, Payload: payload})

	for i, c := range watchers {
		select {
		case msg := <-c.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != enum.EventPositionMoved {
				t.Errorf("client%d: expected type %q, got %q", i+1, enum.EventPositionMoved, received.Type)
			}
			if string(received.Payload) != string(payload) {
				t.Errorf("client%d: expected payload %s, got %s", i+1, payload, received.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}

	select {
	case <-other.send:
		t.Fatal("client of another session should not receive the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_MarshalsPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := uuid.New()
	client := mockClient(hub, sessionID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Publish(sessionID, enum.EventSessionState, map[string]string{"state": enum.SessionStateDirty})

	select {
	case msg := <-client.send:
		var received struct {
			Type    string            `json:"type"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.Type != enum.EventSessionState || received.Payload["state"] != enum.SessionStateDirty {
			t.Errorf("unexpected event: %+v", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
}

func TestPublish_UnmarshalablePayloadIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := uuid.New()
	client := mockClient(hub, sessionID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Publish(sessionID, enum.EventSessionState, map[string]any{"bad": make(chan int)})

	select {
	case <-client.send:
		t.Fatal("unmarshalable payload should not be broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionClosed_HangsUpRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := uuid.New()
	client := mockClient(hub, sessionID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Publish(sessionID, enum.EventSessionClosed, map[string]string{"id": sessionID.String()})
	time.Sleep(10 * time.Millisecond)

	msg, ok := <-client.send
	if !ok {
		t.Fatal("expected the closed event before the channel closes")
	}
	var received Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if received.Type != enum.EventSessionClosed {
		t.Errorf("expected %q, got %q", enum.EventSessionClosed, received.Type)
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after session.closed")
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[sessionID] != nil {
		t.Error("room should be removed after session.closed")
	}
}

func TestBroadcastToNonExistentSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, uuid.New())
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToSession(uuid.New(), Event{
		Type:    enum.EventPartitionReordered,
		Payload: json.RawMessage(`{"test":"data"}`),
	})

	select {
	case <-client.send:
		t.Fatal("client should not receive message for different session")
	case <-time.After(50 * time.Millisecond):
	}
}
