package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DelegatePrefix marks a master reply that requests worker delegation.
const DelegatePrefix = "[DELEGATE]"

// MasterSystemPrompt instructs the master model on the delegation protocol.
const MasterSystemPrompt = `You are Master_Clanker, an orchestration agent that coordinates Worker_Clankers for complex tasks.

When you need to delegate to workers, your response MUST start with [DELEGATE] followed by a JSON array of worker assignments. Each assignment has "identity" (e.g. "Research Assistant", "Code Reviewer") and "task" (the specific subtask). Example:

[DELEGATE][{"identity":"Research Assistant","task":"Find recent studies on topic X"},{"identity":"Summarizer","task":"Synthesize the findings"}]

You may spawn up to 5 workers. Each worker gets a distinct identity and a specific task.

If you can answer the user's question directly without delegation, respond normally. Do NOT use [DELEGATE] for simple queries.`

// WorkerTask 主模型下发的子任务
type WorkerTask struct {
	Identity string `json:"identity"`
	Task     string `json:"task"`
}

// WorkerResult 子任务执行结果，错误以内联文本形式出现在 Content 中
type WorkerResult struct {
	Identity string `json:"identity"`
	Task     string `json:"task"`
	Content  string `json:"content"`
}

// Orchestrator wraps the master agent and fans subtasks out to worker agents.
// Workers always run on Groq with a fresh client per task.
type Orchestrator struct {
	master     Agent
	workerCfg  Config
	maxWorkers int
	sem        *semaphore.Weighted
	active     atomic.Int64
	logger     *zap.Logger
}

// NewOrchestrator 创建编排器，maxWorkers 同时限制单次委派数量和并发许可
func NewOrchestrator(master Agent, workerCfg Config, maxWorkers int, logger *zap.Logger) *Orchestrator {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	workerCfg.Provider = "groq"
	return &Orchestrator{
		master:     master,
		workerCfg:  workerCfg,
		maxWorkers: maxWorkers,
		sem:        semaphore.NewWeighted(int64(maxWorkers)),
		logger:     logger,
	}
}

// Master returns the wrapped master agent for direct chat.
func (o *Orchestrator) Master() Agent {
	return o.master
}

// MaxWorkers returns the configured worker cap.
func (o *Orchestrator) MaxWorkers() int {
	return o.maxWorkers
}

// ActiveWorkers returns the number of worker tasks currently in flight.
func (o *Orchestrator) ActiveWorkers() int64 {
	return o.active.Load()
}

// SpawnWorker runs a single worker task and returns the raw response.
func (o *Orchestrator) SpawnWorker(ctx context.Context, identity, task string) (*Response, error) {
	if o.workerCfg.APIKey == "" {
		return nil, NewAuthenticationFailed()
	}

	worker, err := New(o.workerCfg, o.logger)
	if err != nil {
		return nil, NewUnknown(err.Error())
	}

	o.logger.Debug("Spawning worker",
		zap.String("identity", identity),
		zap.Int("task_len", len(task)),
	)
	return worker.Chat(ctx, workerMessages(identity, task))
}

// Delegate runs worker tasks concurrently, capped at maxWorkers.
// A failing worker never cancels its peers; its error becomes inline result
// text so the master can still synthesize. Results keep task order.
func (o *Orchestrator) Delegate(ctx context.Context, tasks []WorkerTask) []WorkerResult {
	if len(tasks) > o.maxWorkers {
		tasks = tasks[:o.maxWorkers]
	}
	if len(tasks) == 0 {
		return nil
	}

	n := int64(len(tasks))
	if err := o.sem.Acquire(ctx, n); err != nil {
		o.logger.Warn("Worker permit acquisition aborted", zap.Error(err))
		return nil
	}
	o.active.Add(n)
	defer func() {
		o.active.Add(-n)
		o.sem.Release(n)
	}()

	results := make([]WorkerResult, len(tasks))
	var wg sync.WaitGroup
	for i, wt := range tasks {
		wg.Add(1)
		go func(i int, wt WorkerTask) {
			defer wg.Done()
			results[i] = o.runWorker(ctx, wt)
		}(i, wt)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runWorker(ctx context.Context, wt WorkerTask) WorkerResult {
	if o.workerCfg.APIKey == "" {
		o.logger.Warn("Groq API key not set, skipping worker", zap.String("identity", wt.Identity))
		return WorkerResult{
			Identity: wt.Identity,
			Task:     wt.Task,
			Content:  fmt.Sprintf("[Error: Groq API key not configured for worker %s]", wt.Identity),
		}
	}

	worker, err := New(o.workerCfg, o.logger)
	if err != nil {
		return WorkerResult{
			Identity: wt.Identity,
			Task:     wt.Task,
			Content:  fmt.Sprintf("[Worker error: %v]", err),
		}
	}

	resp, err := worker.Chat(ctx, workerMessages(wt.Identity, wt.Task))
	if err != nil {
		o.logger.Error("Worker failed",
			zap.String("identity", wt.Identity),
			zap.Error(err),
		)
		return WorkerResult{
			Identity: wt.Identity,
			Task:     wt.Task,
			Content:  fmt.Sprintf("[Worker error: %v]", err),
		}
	}
	return WorkerResult{
		Identity: wt.Identity,
		Task:     wt.Task,
		Content:  resp.Content,
	}
}

func workerMessages(identity, task string) []ChatMessage {
	systemPrompt := fmt.Sprintf(
		"You are Worker_Clanker. Your identity: %s. Execute this task: %s",
		identity, task,
	)
	return []ChatMessage{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: task},
	}
}

// ParseDelegation extracts worker tasks from a master reply.
// Returns nil unless the trimmed reply starts with the delegation marker
// followed by a non-empty, parseable JSON array. Text after the array is
// ignored.
func ParseDelegation(response string) []WorkerTask {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, DelegatePrefix) {
		return nil
	}

	jsonStart := strings.TrimSpace(strings.TrimPrefix(trimmed, DelegatePrefix))
	if jsonStart == "" {
		return nil
	}

	jsonStr, ok := extractJSONArray(jsonStart)
	if !ok {
		return nil
	}
	var tasks []WorkerTask
	if err := json.Unmarshal([]byte(jsonStr), &tasks); err != nil {
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}
	return tasks
}

// extractJSONArray returns the first complete bracket-balanced array.
// Brackets inside strings don't count; both double and single quotes open
// a string because models occasionally emit single-quoted JSON.
func extractJSONArray(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	var quoteChar byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if c == '\\' {
				escape = true
			} else if c == quoteChar {
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quoteChar = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
