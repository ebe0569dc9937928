package ws

import (
	"encoding/json"
	"testing"
)

func TestHubPublish(t *testing.T) {
	h := NewHub()
	a1 := NewClient(1)
	a2 := NewClient(1)
	b := NewClient(2)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)

	if h.ClientCount() != 3 {
		t.Fatalf("Expected 3 clients, got %d", h.ClientCount())
	}

	h.Publish(1, "balance.updated", map[string]string{"balance": "10.00"})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.Send:
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("Invalid event json: %v", err)
			}
			if ev.Type != "balance.updated" {
				t.Errorf("Expected balance.updated, got %s", ev.Type)
			}
		default:
			t.Error("Expected event for user 1 connection")
		}
	}
	select {
	case <-b.Send:
		t.Error("User 2 must not receive user 1 events")
	default:
	}

	a1.Close()
	a1.Close()
	if h.ClientCount() != 2 {
		t.Errorf("Expected 2 clients after close, got %d", h.ClientCount())
	}
}
