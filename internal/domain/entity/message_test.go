package entity

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// === NewMessage ===

func TestNewMessage(t *testing.T) {
	msg := NewMessage(ChannelTelegram, "12345", "user", "Hello")

	if msg.ID == "" {
		t.Error("ID should be assigned")
	}
	if msg.ChannelType != ChannelTelegram {
		t.Errorf("ChannelType: got %q, want %q", msg.ChannelType, ChannelTelegram)
	}
	if msg.ChannelID != "12345" {
		t.Errorf("ChannelID: got %q, want %q", msg.ChannelID, "12345")
	}
	if msg.Sender != "user" {
		t.Errorf("Sender: got %q, want %q", msg.Sender, "user")
	}
	if msg.Text != "Hello" {
		t.Errorf("Text: got %q, want %q", msg.Text, "Hello")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if msg.Timestamp.Location().String() != "UTC" {
		t.Errorf("Timestamp should be UTC, got %v", msg.Timestamp.Location())
	}
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewMessage(ChannelDiscord, "c", "s", "t")
	b := NewMessage(ChannelDiscord, "c", "s", "t")
	if a.ID == b.ID {
		t.Errorf("two messages got the same ID: %q", a.ID)
	}
}

// === Metadata builders ===

func TestMessage_WithAttachment(t *testing.T) {
	msg := NewMessage(ChannelDiscord, "67890", "user2", "World").
		WithAttachment(NewAttachment("http://example.com/file.pdf", "application/pdf", 1024))

	if len(msg.Metadata.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Metadata.Attachments))
	}
	if msg.Metadata.Attachments[0].SizeBytes != 1024 {
		t.Errorf("SizeBytes: got %d, want 1024", msg.Metadata.Attachments[0].SizeBytes)
	}
	if msg.Metadata.Attachments[0].ID == "" {
		t.Error("attachment ID should be assigned")
	}
}

func TestMessage_WithReplyTo(t *testing.T) {
	msg := NewMessage(ChannelTelegram, "12345", "user", "Reply").
		WithReplyTo("message-123")

	if msg.Metadata.ReplyTo == nil || *msg.Metadata.ReplyTo != "message-123" {
		t.Errorf("ReplyTo: got %v, want message-123", msg.Metadata.ReplyTo)
	}
}

func TestMessage_WithMention(t *testing.T) {
	msg := NewMessage(ChannelTelegram, "12345", "user", "hi").
		WithMention("alice").
		WithMention("bob")

	if len(msg.Metadata.Mentions) != 2 {
		t.Fatalf("expected 2 mentions, got %d", len(msg.Metadata.Mentions))
	}
	if msg.Metadata.Mentions[0] != "alice" || msg.Metadata.Mentions[1] != "bob" {
		t.Errorf("mentions out of order: %v", msg.Metadata.Mentions)
	}
}

// === JSON shape ===

func TestMessage_JSONShape(t *testing.T) {
	msg := NewMessage(ChannelDiscord, "test-channel", "test-user", "Test message")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"channel_type":"discord"`) {
		t.Errorf("channel_type should serialize lowercase: %s", s)
	}
	if !strings.Contains(s, `"attachments":[]`) {
		t.Errorf("empty attachments should be [], not null: %s", s)
	}
	if !strings.Contains(s, `"mentions":[]`) {
		t.Errorf("empty mentions should be [], not null: %s", s)
	}
	if !strings.Contains(s, `"reply_to":null`) {
		t.Errorf("absent reply_to should be null: %s", s)
	}

	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != msg.ID || back.Text != msg.Text || back.ChannelType != msg.ChannelType {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

// === ParseChannelType ===

func TestParseChannelType(t *testing.T) {
	tests := []struct {
		in   string
		want ChannelType
		ok   bool
	}{
		{"telegram", ChannelTelegram, true},
		{"TELEGRAM", ChannelTelegram, true},
		{"discord", ChannelDiscord, true},
		{"Discord", ChannelDiscord, true},
		{"slack", "", false},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseChannelType(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseChannelType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// === UsageStats ===

func TestNewUsageStats(t *testing.T) {
	stats := NewUsageStats(1000, 500)
	if stats.PromptTokens != 1000 || stats.CompletionTokens != 500 {
		t.Errorf("token counts wrong: %+v", stats)
	}
	if stats.TotalTokens != 1500 {
		t.Errorf("TotalTokens: got %d, want 1500", stats.TotalTokens)
	}
}

func TestUsageStats_CalculateCost(t *testing.T) {
	stats := NewUsageStats(1000, 500)

	tests := []struct {
		provider string
		model    string
		want     float64
	}{
		{"groq", "llama-3.3-70b-versatile", 1500.0 / 1_000_000.0 * 0.59},
		{"anthropic", "claude-sonnet-4", 1000.0/1_000_000.0*3.0 + 500.0/1_000_000.0*15.0},
		{"anthropic", "claude-opus-4", 1000.0/1_000_000.0*15.0 + 500.0/1_000_000.0*75.0},
		{"openai", "gpt-4-turbo", 1000.0/1_000_000.0*30.0 + 500.0/1_000_000.0*60.0},
		{"openai", "gpt-3.5-turbo", 1000.0/1_000_000.0*0.50 + 500.0/1_000_000.0*1.50},
		{"something", "else", 1000.0/1_000_000.0*1.0 + 500.0/1_000_000.0*2.0},
	}
	for _, tt := range tests {
		got := stats.CalculateCost(tt.provider, tt.model)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("CalculateCost(%s, %s): got %f, want %f", tt.provider, tt.model, got, tt.want)
		}
	}
}
