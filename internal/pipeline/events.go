package pipeline

// Stage names a step of a run.
type Stage string

const (
	StageLoad       Stage = "load"
	StageSummarize  Stage = "summarize"
	StageChunk      Stage = "chunk"
	StageSynthesize Stage = "synthesize"
	StageTranscribe Stage = "transcribe"
	StageDedup      Stage = "dedup"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Event reports progress within a stage. Percent runs from 0 to 100 for
// each stage.
type Event struct {
	RunID   string
	Stage   Stage
	Percent int
	Message string
}

func (p *Pipeline) emit(runID string, stage Stage, percent int, msg string) {
	e := Event{RunID: runID, Stage: stage, Percent: percent, Message: msg}
	if p.onEvent != nil {
		p.onEvent(e)
	}
	if fn, ok := p.observers.Load(runID); ok {
		fn.(func(Event))(e)
	}
}
