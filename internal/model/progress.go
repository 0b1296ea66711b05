package model

// Stage labels one step of the executor state machine.
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageDownloading Stage = "downloading"
	StageProcessing  Stage = "processing"
	StageIterating   Stage = "iterating"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// Progress is a point-in-time progress report, tagged by Stage. Iteration is
// set only for StageIterating so the contract stays checkable instead of an
// open key/value bag.
type Progress struct {
	Stage     Stage              `json:"stage"`
	Percent   int                `json:"percent"`
	Message   string             `json:"message,omitempty"`
	Iteration *IterationProgress `json:"iteration,omitempty"`
}

// IterationProgress carries the sub-item counters for playlist/batch tasks.
type IterationProgress struct {
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Total        int    `json:"total"`
	Current      int    `json:"current"` // 1-based index of the item in flight
	CurrentTitle string `json:"currentTitle,omitempty"`
}
