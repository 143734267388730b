package constants

// Stage is the current step of an ingestion run.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageReading     Stage = "reading"
	StageDecoding    Stage = "decoding"
	StageRecognizing Stage = "recognizing"
	StageStructuring Stage = "structuring"
	StageMapping     Stage = "mapping"
	StageCommitting  Stage = "committing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further transitions follow.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
