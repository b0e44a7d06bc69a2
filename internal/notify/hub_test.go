package notify

import (
	"testing"
	"time"

	"crm-messaging-server/internal/models"
)

func TestHubPublishToSubscriber(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.Subscribe("conv-1")
	defer cancel()

	event := StatusEvent{ConversationID: "conv-1", MessageID: "msg-1", Status: models.StatusDelivered}
	hub.Publish(event)

	select {
	case got := <-ch:
		if got != event {
			t.Errorf("received = %+v, want %+v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubScopedToConversation(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.Subscribe("conv-1")
	defer cancel()

	hub.Publish(StatusEvent{ConversationID: "conv-2", MessageID: "msg-1", Status: models.StatusDelivered})

	select {
	case event := <-ch:
		t.Errorf("received event for other conversation: %+v", event)
	default:
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := NewHub(4)

	ch1, cancel1 := hub.Subscribe("conv-1")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("conv-1")
	defer cancel2()

	hub.Publish(StatusEvent{ConversationID: "conv-1", MessageID: "msg-1", Status: models.StatusFailed})

	for i, ch := range []<-chan StatusEvent{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.Subscribe("conv-1")
	cancel()

	// The channel is closed on cancel.
	if _, open := <-ch; open {
		t.Error("expected channel to be closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	hub.Publish(StatusEvent{ConversationID: "conv-1", MessageID: "msg-1", Status: models.StatusDelivered})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)

	ch, cancel := hub.Subscribe("conv-1")
	defer cancel()

	// Fill the buffer without reading; the second publish must not block.
	hub.Publish(StatusEvent{ConversationID: "conv-1", MessageID: "msg-1", Status: models.StatusDelivered})

	done := make(chan struct{})
	go func() {
		hub.Publish(StatusEvent{ConversationID: "conv-1", MessageID: "msg-2", Status: models.StatusFailed})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	got := <-ch
	if got.MessageID != "msg-1" {
		t.Errorf("buffered event = %q, want msg-1", got.MessageID)
	}
}
