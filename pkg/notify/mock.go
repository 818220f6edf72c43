package notify

import (
	"context"
	"sync"
)

// SentMessage is one delivery recorded by the mock.
type SentMessage struct {
	ChatID  string
	Kind    string // "text", "photo", "video"
	Text    string
	Payload []byte
}

// MockNotifier records deliveries for tests, with error injection.
type MockNotifier struct {
	mu       sync.Mutex
	messages []SentMessage

	SendError error
}

// NewMockNotifier creates an empty mock.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendText(ctx context.Context, chatID, text string) error {
	return m.record(SentMessage{ChatID: chatID, Kind: "text", Text: text})
}

func (m *MockNotifier) SendPhoto(ctx context.Context, chatID, caption string, photo []byte) error {
	return m.record(SentMessage{ChatID: chatID, Kind: "photo", Text: caption, Payload: photo})
}

func (m *MockNotifier) SendVideo(ctx context.Context, chatID, caption string, video []byte) error {
	return m.record(SentMessage{ChatID: chatID, Kind: "video", Text: caption, Payload: video})
}

func (m *MockNotifier) record(msg SentMessage) error {
	if m.SendError != nil {
		return m.SendError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded deliveries.
func (m *MockNotifier) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.messages...)
}

// Clear drops all recorded deliveries.
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
