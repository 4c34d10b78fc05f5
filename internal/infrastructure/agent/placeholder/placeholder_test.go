package placeholder

import (
	"context"
	"testing"

	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
)

func TestChat_EchoesLastMessage(t *testing.T) {
	a := New(agent.Config{Provider: "placeholder", Model: "test-model"})

	resp, err := a.Chat(context.Background(), []agent.ChatMessage{
		{Role: agent.RoleUser, Content: "first"},
		{Role: agent.RoleUser, Content: "second"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	want := "Placeholder response from placeholder: second"
	if resp.Content != want {
		t.Errorf("content: got %q, want %q", resp.Content, want)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish_reason: got %q", resp.FinishReason)
	}
	if resp.Usage.PromptTokens != 2 || resp.Usage.CompletionTokens != 10 || resp.Usage.TotalTokens != 12 {
		t.Errorf("usage: got %+v", resp.Usage)
	}
	if resp.Model != "test-model" || resp.Provider != "placeholder" {
		t.Errorf("model/provider: got %q/%q", resp.Model, resp.Provider)
	}
}

func TestChat_NoMessages(t *testing.T) {
	a := New(agent.Config{Provider: "placeholder", Model: "m"})
	resp, err := a.Chat(context.Background(), nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Placeholder response from placeholder: Hello!" {
		t.Errorf("content: got %q", resp.Content)
	}
}

func TestChatStream_NotImplemented(t *testing.T) {
	a := New(agent.Config{Provider: "placeholder", Model: "m"})
	if _, err := a.ChatStream(context.Background(), nil); err == nil {
		t.Fatal("ChatStream should return an error")
	}
}
