package services

import (
	"context"
	"errors"
	"testing"

	"crm-messaging-server/internal/gateway"
	"crm-messaging-server/internal/models"
)

type mockConversationStore struct {
	conversations map[string]*models.Conversation
	touched       []string
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{conversations: make(map[string]*models.Conversation)}
}

func (m *mockConversationStore) GetByID(id string) (*models.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return conv, nil
}

func (m *mockConversationStore) GetOrCreate(contactAddr, channel string) (*models.Conversation, error) {
	for _, conv := range m.conversations {
		if conv.ContactAddr == contactAddr && conv.Channel == channel {
			return conv, nil
		}
	}
	conv := &models.Conversation{ID: "conv-" + contactAddr, ContactAddr: contactAddr, Channel: channel}
	m.conversations[conv.ID] = conv
	return conv, nil
}

func (m *mockConversationStore) TouchLastMessage(id string, ts int64) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockConversationStore) List(limit, offset int) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, conv := range m.conversations {
		out = append(out, conv)
	}
	return out, nil
}

type mockSender struct {
	requests []gateway.SendRequest
	err      error
}

func (m *mockSender) Send(_ context.Context, req gateway.SendRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

func TestSendMessage(t *testing.T) {
	store := newMockMessageStore()
	conversations := newMockConversationStore()
	sender := &mockSender{}
	service := NewMessageService(store, conversations, sender, "CRM", nil)

	msg, err := service.Send(context.Background(), "user-1", models.SendMessageRequest{
		Channel:     models.ChannelSMS,
		Destination: "1234567890",
		Body:        "Hello there",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if msg.ID == "" {
		t.Error("expected a generated message ID")
	}
	if msg.Status != models.StatusSent {
		t.Errorf("status = %q, want sent", msg.Status)
	}
	if len(sender.requests) != 1 {
		t.Fatalf("gateway requests = %d, want 1", len(sender.requests))
	}
	// The generated ID is the external identifier sent to the vendor.
	if sender.requests[0].ExternalID != msg.ID {
		t.Errorf("gateway externalId = %q, want %q", sender.requests[0].ExternalID, msg.ID)
	}
	if len(conversations.touched) != 1 {
		t.Errorf("conversations touched = %d, want 1", len(conversations.touched))
	}
}

func TestSendMessageGatewayFailure(t *testing.T) {
	store := newMockMessageStore()
	conversations := newMockConversationStore()
	sender := &mockSender{err: errors.New("vendor returned status 500")}
	service := NewMessageService(store, conversations, sender, "CRM", nil)

	msg, err := service.Send(context.Background(), "user-1", models.SendMessageRequest{
		Channel:     models.ChannelWhatsApp,
		Destination: "1234567890",
		Body:        "Hello",
	})
	if err == nil {
		t.Fatal("Send() expected error on gateway failure")
	}
	if msg == nil {
		t.Fatal("Send() should return the stored message on gateway failure")
	}
	if got := store.status(msg.ID); got != models.StatusFailed {
		t.Errorf("stored status = %q, want failed", got)
	}
}

func TestSendMessageValidation(t *testing.T) {
	service := NewMessageService(newMockMessageStore(), newMockConversationStore(), &mockSender{}, "CRM", nil)

	tests := []struct {
		name string
		req  models.SendMessageRequest
	}{
		{"missing destination", models.SendMessageRequest{Channel: models.ChannelSMS, Body: "hi"}},
		{"missing body", models.SendMessageRequest{Channel: models.ChannelSMS, Destination: "123"}},
		{"unsupported channel", models.SendMessageRequest{Channel: "carrier-pigeon", Destination: "123", Body: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Send(context.Background(), "user-1", tt.req); err == nil {
				t.Error("Send() expected validation error")
			}
		})
	}
}

func TestSendBulkPartialFailure(t *testing.T) {
	store := newMockMessageStore()
	conversations := newMockConversationStore()
	sender := &mockSender{}
	service := NewMessageService(store, conversations, sender, "CRM", nil)

	tpl := &models.Template{
		ID:      "tpl-1",
		Name:    "welcome",
		Channel: models.ChannelSMS,
		Body:    "Hi {{name}}!",
	}

	recipients := []models.BulkRecipient{
		{Destination: "111", Variables: map[string]string{"name": "Ann"}},
		{Destination: "", Variables: map[string]string{"name": "Bob"}}, // invalid
		{Destination: "333", Variables: map[string]string{"name": "Cid"}},
	}

	result, err := service.SendBulk(context.Background(), "user-1", tpl, recipients)
	if err != nil {
		t.Fatalf("SendBulk() error = %v", err)
	}
	if result.Sent != 2 || result.Failed != 1 || result.Total != 3 {
		t.Errorf("result = %+v, want sent=2 failed=1 total=3", result)
	}
	if len(sender.requests) != 2 {
		t.Fatalf("gateway requests = %d, want 2", len(sender.requests))
	}
	if sender.requests[0].Body != "Hi Ann!" {
		t.Errorf("rendered body = %q, want %q", sender.requests[0].Body, "Hi Ann!")
	}
}

func TestFragmentCount(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 1},
		{160, 1},
		{161, 2},
		{306, 2},
		{307, 3},
	}
	for _, tt := range tests {
		body := make([]byte, tt.length)
		for i := range body {
			body[i] = 'a'
		}
		if got := fragmentCount(string(body)); got != tt.want {
			t.Errorf("fragmentCount(len %d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}
