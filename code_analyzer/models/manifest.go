package models

import (
	"math"
	"time"
)

// Manifest is the persisted scan output consumed by the dashboard.
type Manifest struct {
	GeneratedAt time.Time            `json:"generatedAt" yaml:"generatedAt"`
	Revision    string               `json:"revision,omitempty" yaml:"revision,omitempty"`
	Quarters    map[int]*GroupResult `json:"quarters" yaml:"quarters"`
	Summary     Summary              `json:"summary" yaml:"summary"`
	DayStatus   map[int]DayStatus    `json:"dayStatus" yaml:"dayStatus"`
}

type GroupResult struct {
	Folder string              `json:"folder" yaml:"folder"`
	Weeks  map[int]*WeekResult `json:"weeks" yaml:"weeks"`
}

type WeekResult struct {
	Folder    string                    `json:"folder" yaml:"folder"`
	Exercises map[string]ExerciseStatus `json:"exercises" yaml:"exercises"`
}

// ExerciseStatus is the manifest view of a ClassificationOutcome. Error is set only for unreadable files.
type ExerciseStatus struct {
	Path               string     `json:"path" yaml:"path"`
	Complete           bool       `json:"complete" yaml:"complete"`
	IncompleteMatches  int        `json:"incompleteMatches" yaml:"incompleteMatches"`
	CompleteMatches    int        `json:"completeMatches" yaml:"completeMatches"`
	TotalFunctions     int        `json:"totalFunctions" yaml:"totalFunctions"`
	CompletedFunctions int        `json:"completedFunctions" yaml:"completedFunctions"`
	Hash               string     `json:"hash,omitempty" yaml:"hash,omitempty"`
	Lines              int        `json:"lines,omitempty" yaml:"lines,omitempty"`
	LastModified       *time.Time `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
	Error              string     `json:"error,omitempty" yaml:"error,omitempty"`
}

type Summary struct {
	TotalExercises     int `json:"totalExercises" yaml:"totalExercises"`
	CompletedExercises int `json:"completedExercises" yaml:"completedExercises"`
	CompletionRate     int `json:"completionRate" yaml:"completionRate"`
}

type DayStatus struct {
	Complete bool   `json:"complete" yaml:"complete"`
	File     string `json:"file" yaml:"file"`
}

// NewExerciseStatus flattens an outcome into its manifest entry.
func NewExerciseStatus(outcome ClassificationOutcome) ExerciseStatus {
	switch o := outcome.(type) {
	case Analyzed:
		modified := o.File.LastModifiedAt
		return ExerciseStatus{
			Path:               o.File.RelativePath,
			Complete:           o.Result.IsComplete,
			IncompleteMatches:  o.Result.IncompleteMatches,
			CompleteMatches:    o.Result.CompleteMatches,
			TotalFunctions:     o.Result.TotalFunctions,
			CompletedFunctions: o.Result.CompletedFunctions,
			Hash:               o.File.ContentHash,
			Lines:              o.File.LineCount,
			LastModified:       &modified,
		}
	case Unreadable:
		return ExerciseStatus{
			Path:     o.RelativePath,
			Complete: false,
			Error:    o.Reason,
		}
	default:
		return ExerciseStatus{Error: "unknown outcome"}
	}
}

// CompletionRate is the rounded percentage of completed over total, 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
