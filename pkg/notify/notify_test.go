package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeChatID(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"-100987654321", int64(-100987654321)},
		{" 42 ", int64(42)},
		{"@channelname", "@channelname"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeChatID(tt.raw); got != tt.want {
			t.Errorf("normalizeChatID(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
		}
	}
}

func TestNewTelegramNotifierRequiresToken(t *testing.T) {
	if _, err := NewTelegramNotifier("", "", nil); err == nil {
		t.Error("Expected an error for empty bot token")
	}
	if _, err := NewTelegramNotifier("   ", "", nil); err == nil {
		t.Error("Expected an error for blank bot token")
	}
}

func telegramMock(t *testing.T, capture func(method string, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Errorf("Failed to parse request form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		capture(method, r)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "result": {"message_id": 100, "date": 1700000000, "chat": {"id": 42, "type": "private"}}}`))
	}))
}

func TestSendText(t *testing.T) {
	var gotMethod, gotChatID, gotText, gotParseMode string
	server := telegramMock(t, func(method string, r *http.Request) {
		gotMethod = method
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		gotParseMode = r.FormValue("parse_mode")
	})
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create notifier: %v", err)
	}

	if err := notifier.SendText(context.Background(), "42", "<b>new story</b>"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	if gotMethod != "sendMessage" {
		t.Errorf("Expected sendMessage, got %s", gotMethod)
	}
	if gotChatID != "42" {
		t.Errorf("Expected chat_id 42, got %s", gotChatID)
	}
	if gotText != "<b>new story</b>" {
		t.Errorf("Unexpected text: %q", gotText)
	}
	if gotParseMode != "HTML" {
		t.Errorf("Expected HTML parse mode, got %q", gotParseMode)
	}
}

func TestSendPhoto(t *testing.T) {
	var gotMethod, gotCaption string
	var gotPhoto []byte
	server := telegramMock(t, func(method string, r *http.Request) {
		gotMethod = method
		gotCaption = r.FormValue("caption")

		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("Expected a photo upload: %v", err)
			return
		}
		defer file.Close()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotPhoto = buf[:n]
	})
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create notifier: %v", err)
	}

	if err := notifier.SendPhoto(context.Background(), "42", "caption", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("SendPhoto failed: %v", err)
	}

	if gotMethod != "sendPhoto" {
		t.Errorf("Expected sendPhoto, got %s", gotMethod)
	}
	if gotCaption != "caption" {
		t.Errorf("Unexpected caption: %q", gotCaption)
	}
	if string(gotPhoto) != "jpeg-bytes" {
		t.Errorf("Unexpected photo bytes: %q", gotPhoto)
	}
}

func TestSendVideo(t *testing.T) {
	var gotMethod string
	server := telegramMock(t, func(method string, r *http.Request) {
		gotMethod = method
		if _, _, err := r.FormFile("video"); err != nil {
			t.Errorf("Expected a video upload: %v", err)
		}
	})
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create notifier: %v", err)
	}

	if err := notifier.SendVideo(context.Background(), "42", "caption", []byte("mp4-bytes")); err != nil {
		t.Fatalf("SendVideo failed: %v", err)
	}
	if gotMethod != "sendVideo" {
		t.Errorf("Expected sendVideo, got %s", gotMethod)
	}
}

func TestSendTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`))
	}))
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create notifier: %v", err)
	}

	if err := notifier.SendText(context.Background(), "42", "hello"); err == nil {
		t.Error("Expected an error for a failed API call")
	}
}

func TestMockNotifierRecords(t *testing.T) {
	mock := NewMockNotifier()

	if err := mock.SendText(context.Background(), "42", "hello"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if err := mock.SendPhoto(context.Background(), "42", "cap", []byte("img")); err != nil {
		t.Fatalf("SendPhoto failed: %v", err)
	}

	messages := mock.Messages()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Kind != "text" || messages[1].Kind != "photo" {
		t.Errorf("Unexpected message kinds: %+v", messages)
	}
}
