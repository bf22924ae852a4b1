// Package ingest tracks a staged document-ingestion run. The backend only
// reports upload and reindex completion, so the middle stages are advanced
// on wall-clock delays that approximate real processing; the delays live in
// Delays so a real progress feed can replace them without touching the
// state machine.
package ingest

import (
	"errors"
	"time"
)

type Stage int

const (
	StageIdle Stage = iota
	StageUpload
	StageChunk
	StageHeaders
	StageEmbed
	StageFinalize
)

var stageLabels = map[Stage]string{
	StageUpload:   "Uploading to Secure Storage",
	StageChunk:    "Splitting Document into Chunks",
	StageHeaders:  "Generating Contextual Headers (Qwen 2.5)",
	StageEmbed:    "Creating Vector Embeddings (BGE-M3)",
	StageFinalize: "Finalizing Index & Metadata",
}

func (s Stage) Label() string {
	return stageLabels[s]
}

// Stages lists the pipeline stages in display order.
func Stages() []Stage {
	return []Stage{StageUpload, StageChunk, StageHeaders, StageEmbed, StageFinalize}
}

var ErrRunActive = errors.New("ingestion run already active")

// Delays are measured from upload completion (headers, embeddings) and from
// reaching the final stage (reset).
type Delays struct {
	Headers    time.Duration
	Embeddings time.Duration
	Reset      time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Headers:    1500 * time.Millisecond,
		Embeddings: 3500 * time.Millisecond,
		Reset:      2 * time.Second,
	}
}

// Tracker is the single process-wide ingestion run. Stages advance strictly
// in order; there is no queuing of a second run.
type Tracker struct {
	stage  Stage
	files  []string
	delays Delays
}

func NewTracker(d Delays) *Tracker {
	return &Tracker{delays: d}
}

func (t *Tracker) Stage() Stage {
	return t.stage
}

func (t *Tracker) Files() []string {
	return t.files
}

func (t *Tracker) Delays() Delays {
	return t.delays
}

// Busy reports whether a new run must be rejected. The finalize stage only
// lingers for display, so it does not block a fresh run.
func (t *Tracker) Busy() bool {
	return t.stage != StageIdle && t.stage != StageFinalize
}

// Start begins a run for the given files, entering the upload stage.
func (t *Tracker) Start(files []string) error {
	if t.Busy() {
		return ErrRunActive
	}
	if len(files) == 0 {
		return errors.New("no files selected")
	}
	t.files = files
	t.stage = StageUpload
	return nil
}

// StartResync begins a reindex-only run (no new files): the pipeline enters
// directly at the embedding stage before the awaited reindex call.
func (t *Tracker) StartResync() error {
	if t.Busy() {
		return ErrRunActive
	}
	t.files = nil
	t.stage = StageEmbed
	return nil
}

// AdvanceTo moves to the target stage only when it is the immediate
// successor of the current one. Out-of-order timer events are ignored, which
// keeps the visible sequence strictly 1..5 even when delay-driven and
// call-driven advances race.
func (t *Tracker) AdvanceTo(target Stage) bool {
	if target != t.stage+1 || target > StageFinalize {
		return false
	}
	t.stage = target
	return true
}

// Fail aborts the run. Completed stages are not replayed or rolled back;
// the tracker simply returns to idle.
func (t *Tracker) Fail() {
	t.stage = StageIdle
	t.files = nil
}

// Reset returns to idle after the finalize display delay.
func (t *Tracker) Reset() {
	t.stage = StageIdle
	t.files = nil
}
