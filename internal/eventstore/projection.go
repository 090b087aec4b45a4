package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const statusRunning = "running"

// RunSummary is a read model of one pipeline run.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	Trigger      string            `json:"trigger,omitempty"`
	Status       string            `json:"status"` // running, success, warning, failed
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty"`
	Commit       string            `json:"commit,omitempty"`
	Pages        int               `json:"pages"`
	Failures     int               `json:"failures"`
	Warnings     int               `json:"warnings"`
	Error        string            `json:"error,omitempty"`
	Stages       map[string]string `json:"stages,omitempty"` // stage -> result
	Fingerprints map[string]string `json:"-"`
}

// HistoryProjection rebuilds run history from the ledger.
type HistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // completed runs, newest first
	maxSize int
}

// NewHistoryProjection creates a projection keeping at most maxHistorySize runs.
func NewHistoryProjection(store Store, maxHistorySize int) *HistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &HistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = nil
	for _, event := range events {
		p.applyLocked(event)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	return nil
}

// Apply processes a single event.
func (p *HistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *HistoryProjection) applyLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{RunID: runID, Status: statusRunning, StartedAt: event.Timestamp()}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeBuildStarted:
		var payload BuildStartedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Trigger = payload.Trigger
		}
		summary.StartedAt = event.Timestamp()

	case TypeSourceSynced:
		var payload SourceSyncedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Commit = payload.Commit
		}

	case TypeStageCompleted:
		var payload StageCompletedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			if summary.Stages == nil {
				summary.Stages = map[string]string{}
			}
			summary.Stages[payload.Stage] = payload.Result
		}

	case TypeBuildCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		var payload BuildCompletedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Status = payload.Outcome
			summary.Pages = payload.Pages
			summary.Failures = len(payload.Failures)
			summary.Warnings = payload.Warnings
			summary.Error = payload.Error
			summary.Fingerprints = payload.Fingerprints
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *HistoryProjection) addToHistoryLocked(summary *RunSummary) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}

	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, s := range p.runs {
		if s.Status == statusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// History returns completed runs, newest first.
func (p *HistoryProjection) History() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make([]*RunSummary, len(p.history))
	copy(result, p.history)
	return result
}

// Run returns the summary of one run.
func (p *HistoryProjection) Run(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// LastCompleted returns the most recently completed run, or nil.
func (p *HistoryProjection) LastCompleted() *RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.history) == 0 {
		return nil
	}
	cp := *p.history[0]
	return &cp
}

// ChangedPages compares the fingerprints of two runs and returns pages that
// were added or changed in next, sorted.
func ChangedPages(prev, next *RunSummary) []string {
	var changed []string
	for path, fp := range next.Fingerprints {
		if prev == nil || prev.Fingerprints[path] != fp {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}
