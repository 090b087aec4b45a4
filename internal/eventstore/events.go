package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStageCompleted = "StageCompleted"
	TypeSourceSynced   = "SourceSynced"
	TypeBuildCompleted = "BuildCompleted"
)

// BuildStartedPayload is recorded when a run begins.
type BuildStartedPayload struct {
	SourceRoot string `json:"source_root"`
	OutputRoot string `json:"output_root"`
	Trigger    string `json:"trigger"` // build, watch, schedule
}

// StageCompletedPayload is recorded after each pipeline stage.
type StageCompletedPayload struct {
	Stage      string `json:"stage"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
}

// SourceSyncedPayload is recorded after the source checkout was cloned or pulled.
type SourceSyncedPayload struct {
	URL        string `json:"url"`
	Commit     string `json:"commit"`
	Cloned     bool   `json:"cloned"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildCompletedPayload summarizes a finished run.
type BuildCompletedPayload struct {
	Outcome      string            `json:"outcome"`
	DurationMS   int64             `json:"duration_ms"`
	Pages        int               `json:"pages"`
	Failures     []string          `json:"failures,omitempty"`
	Warnings     int               `json:"warnings"`
	Error        string            `json:"error,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"` // page path -> fingerprint
}

func newEvent(runID, eventType string, payload any, metadata map[string]string) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to marshal "+eventType+" payload").
			WithContext("run_id", runID).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
		EventMetadata:  metadata,
	}, nil
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(runID string, p BuildStartedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeBuildStarted, p, nil)
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(runID, stage, result string, d time.Duration) (*BaseEvent, error) {
	return newEvent(runID, TypeStageCompleted, StageCompletedPayload{
		Stage:      stage,
		Result:     result,
		DurationMS: d.Milliseconds(),
	}, map[string]string{"stage": stage})
}

// NewSourceSynced creates a SourceSynced event.
func NewSourceSynced(runID string, p SourceSyncedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeSourceSynced, p, nil)
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(runID string, p BuildCompletedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeBuildCompleted, p, map[string]string{"outcome": p.Outcome})
}
