package gateway

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// stubAgent replays scripted replies in order and records every call.
type stubAgent struct {
	replies []string
	err     error
	calls   atomic.Int64
	last    [][]agent.ChatMessage
}

func (s *stubAgent) Chat(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	n := s.calls.Add(1)
	s.last = append(s.last, messages)
	if s.err != nil {
		return nil, s.err
	}
	reply := "ok"
	if len(s.replies) > 0 {
		idx := int(n) - 1
		if idx >= len(s.replies) {
			idx = len(s.replies) - 1
		}
		reply = s.replies[idx]
	}
	return &agent.Response{
		Content:      reply,
		FinishReason: "stop",
		Model:        "stub",
		Provider:     "stub",
	}, nil
}

func (s *stubAgent) ChatStream(ctx context.Context, messages []agent.ChatMessage) (<-chan agent.StreamChunk, error) {
	return nil, agent.NewUnknown("Streaming not implemented")
}

func (s *stubAgent) Provider() string { return "stub" }
func (s *stubAgent) Model() string    { return "stub" }

func newTestProcessor(master, fallback agent.Agent, orch *agent.Orchestrator) *Processor {
	return NewProcessor(master, fallback, orch, monitoring.NewMonitor(), testLogger())
}

func incoming(text string) *entity.Message {
	return entity.NewMessage(entity.ChannelTelegram, "123", "user", text)
}

// === Direct flow ===

func TestProcess_EmptyTextFails(t *testing.T) {
	p := newTestProcessor(&stubAgent{}, nil, nil)

	_, err := p.Process(context.Background(), incoming(""))
	if err == nil {
		t.Fatal("empty text should be rejected")
	}
	if err.Error() != "Message text cannot be empty" {
		t.Errorf("error message: got %q", err.Error())
	}
}

func TestProcess_Direct(t *testing.T) {
	master := &stubAgent{replies: []string{"hello back"}}
	p := newTestProcessor(master, nil, nil)

	in := incoming("hi")
	reply, err := p.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if reply.Text != "hello back" {
		t.Errorf("reply text: got %q", reply.Text)
	}
	if reply.ChannelType != in.ChannelType || reply.ChannelID != in.ChannelID {
		t.Errorf("reply should inherit channel: %+v", reply)
	}
	if reply.Sender != "assistant" {
		t.Errorf("reply sender: got %q", reply.Sender)
	}
	if reply.ID == in.ID {
		t.Error("reply should get a fresh ID")
	}

	msgs := master.last[0]
	if len(msgs) != 1 || msgs[0].Role != agent.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("direct flow should send a single user message: %+v", msgs)
	}
}

// === Fallback ===

func TestProcess_FallbackUsedOnce(t *testing.T) {
	master := &stubAgent{err: agent.NewProviderError("primary down")}
	fallback := &stubAgent{replies: []string{"from fallback"}}
	p := newTestProcessor(master, fallback, nil)

	reply, err := p.Process(context.Background(), incoming("hi"))
	if err != nil {
		t.Fatalf("fallback should save the request: %v", err)
	}
	if reply.Text != "from fallback" {
		t.Errorf("reply text: got %q", reply.Text)
	}
	if master.calls.Load() != 1 || fallback.calls.Load() != 1 {
		t.Errorf("each agent should be tried exactly once: master=%d fallback=%d",
			master.calls.Load(), fallback.calls.Load())
	}
}

func TestProcess_FallbackFailureIsFinal(t *testing.T) {
	master := &stubAgent{err: agent.NewProviderError("primary down")}
	fallback := &stubAgent{err: agent.NewProviderError("fallback down")}
	p := newTestProcessor(master, fallback, nil)

	_, err := p.Process(context.Background(), incoming("hi"))
	if err == nil {
		t.Fatal("both agents failing should surface an error")
	}
	if !strings.Contains(err.Error(), "fallback down") {
		t.Errorf("the fallback error should win: %v", err)
	}
	if fallback.calls.Load() != 1 {
		t.Errorf("fallback should be tried exactly once, got %d", fallback.calls.Load())
	}
}

func TestProcess_NoFallbackConfigured(t *testing.T) {
	master := &stubAgent{err: agent.NewProviderError("primary down")}
	p := newTestProcessor(master, nil, nil)

	_, err := p.Process(context.Background(), incoming("hi"))
	if err == nil {
		t.Fatal("expected primary error to surface")
	}
	if !strings.Contains(err.Error(), "primary down") {
		t.Errorf("unexpected error: %v", err)
	}
}

// === Orchestrated flow ===

// echoWorker answers with the task text so results stay attributable
// regardless of spawn order.
type echoWorker struct{}

func (echoWorker) Chat(ctx context.Context, messages []agent.ChatMessage) (*agent.Response, error) {
	task := messages[len(messages)-1].Content
	return &agent.Response{Content: "done: " + task, FinishReason: "stop", Provider: "groq"}, nil
}

func (echoWorker) ChatStream(ctx context.Context, messages []agent.ChatMessage) (<-chan agent.StreamChunk, error) {
	return nil, agent.NewUnknown("Streaming not implemented")
}

func (echoWorker) Provider() string { return "groq" }
func (echoWorker) Model() string    { return "stub" }

func registerStubWorkers() {
	agent.RegisterFactory("groq", func(cfg agent.Config, logger *zap.Logger) agent.Agent {
		return echoWorker{}
	})
}

func TestProcess_OrchestratedNoDelegation(t *testing.T) {
	master := &stubAgent{replies: []string{"plain answer"}}
	orch := agent.NewOrchestrator(master, agent.Config{APIKey: "k"}, 5, testLogger())
	p := newTestProcessor(master, nil, orch)

	reply, err := p.Process(context.Background(), incoming("simple question"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Text != "plain answer" {
		t.Errorf("reply text: got %q", reply.Text)
	}
	if master.calls.Load() != 1 {
		t.Errorf("no delegation means a single master call, got %d", master.calls.Load())
	}

	msgs := master.last[0]
	if len(msgs) != 2 || msgs[0].Role != agent.RoleSystem {
		t.Fatalf("orchestrated flow should prepend the master system prompt: %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "Master_Clanker") {
		t.Errorf("system prompt content: got %q", msgs[0].Content)
	}
}

func TestProcess_OrchestratedDelegation(t *testing.T) {
	registerStubWorkers()

	master := &stubAgent{replies: []string{
		`[DELEGATE][{"identity":"Researcher","task":"find studies"},{"identity":"Writer","task":"summarize"}]`,
		"final synthesis",
	}}
	orch := agent.NewOrchestrator(master, agent.Config{APIKey: "k"}, 5, testLogger())
	p := newTestProcessor(master, nil, orch)

	reply, err := p.Process(context.Background(), incoming("complex question"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply.Text != "final synthesis" {
		t.Errorf("reply text: got %q", reply.Text)
	}
	if master.calls.Load() != 2 {
		t.Fatalf("delegation needs exactly two master calls, got %d", master.calls.Load())
	}

	synth := master.last[1]
	lastMsg := synth[len(synth)-1]
	if lastMsg.Role != agent.RoleUser {
		t.Errorf("synthesis prompt should be a user message: %+v", lastMsg)
	}
	if !strings.HasPrefix(lastMsg.Content, "Worker_Clanker results:\n\n") {
		t.Errorf("synthesis prompt header: got %q", lastMsg.Content)
	}
	if !strings.Contains(lastMsg.Content, "[Researcher] Task: find studies\nResult: done: find studies") {
		t.Errorf("synthesis prompt should include worker results: %q", lastMsg.Content)
	}
	if !strings.HasSuffix(lastMsg.Content, "Synthesize these results into a coherent response for the user.") {
		t.Errorf("synthesis prompt footer: got %q", lastMsg.Content)
	}
	// The prior exchange stays in the synthesis transcript.
	if synth[len(synth)-2].Role != agent.RoleAssistant {
		t.Errorf("master reply should precede the synthesis prompt: %+v", synth)
	}
}

func TestBuildSynthesisPrompt(t *testing.T) {
	prompt := buildSynthesisPrompt([]agent.WorkerResult{
		{Identity: "A", Task: "t1", Content: "r1"},
		{Identity: "B", Task: "t2", Content: "[Worker error: boom]"},
	})

	want := "Worker_Clanker results:\n\n" +
		"[A] Task: t1\nResult: r1\n\n" +
		"[B] Task: t2\nResult: [Worker error: boom]\n\n" +
		"Synthesize these results into a coherent response for the user."
	if prompt != want {
		t.Errorf("synthesis prompt mismatch:\ngot:  %q\nwant: %q", prompt, want)
	}
}
