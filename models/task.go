package models

// TaskType classifies the intent of a prompt. The set is closed: routing
// tables are keyed by it and every entry must resolve.
type TaskType string

const (
	TaskCode          TaskType = "code"
	TaskCreative      TaskType = "creative"
	TaskMath          TaskType = "math"
	TaskSummarization TaskType = "summarization"
	TaskTranslation   TaskType = "translation"
	TaskQA            TaskType = "qa"
	TaskMultiStep     TaskType = "multi_step"
)

// AllTaskTypes lists every task type in a stable order.
var AllTaskTypes = []TaskType{
	TaskCode,
	TaskCreative,
	TaskMath,
	TaskSummarization,
	TaskTranslation,
	TaskQA,
	TaskMultiStep,
}

// IsValid reports whether t is a known task type.
func (t TaskType) IsValid() bool {
	for _, known := range AllTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ComplexityBand is the coarse low/medium/high grouping of a complexity score.
type ComplexityBand string

const (
	BandLow    ComplexityBand = "low"
	BandMedium ComplexityBand = "medium"
	BandHigh   ComplexityBand = "high"
)
