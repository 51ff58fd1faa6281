package models

import "time"

// ExerciseFile is one source file inside a week's exercises folder, read fresh on every scan.
type ExerciseFile struct {
	RelativePath   string
	Content        []byte
	ContentHash    string
	LineCount      int
	LastModifiedAt time.Time
}

// FunctionSpan is the text between one top-level function header and the next one (or EOF).
type FunctionSpan struct {
	Name     string
	BodyText string
}

// FunctionVerdict records how a single function was judged.
type FunctionVerdict struct {
	Name              string
	Skipped           bool
	Complete          bool
	IncompleteMatches int
	CompleteMatches   int
	StringAssignment  bool
	BodyText          string
}

// ClassificationResult holds the rule counts and the final decision for one file.
type ClassificationResult struct {
	IncompleteMatches  int
	CompleteMatches    int
	TotalFunctions     int
	CompletedFunctions int
	IsComplete         bool
	MatchedIncomplete  []string
	MatchedComplete    []string
	Functions          []FunctionVerdict
}

// ClassificationOutcome is either Analyzed or Unreadable.
type ClassificationOutcome interface {
	outcome()
}

// Analyzed is the outcome of a file that could be read and classified.
type Analyzed struct {
	File   ExerciseFile
	Result ClassificationResult
}

// Unreadable is the outcome of a file that could not be read.
type Unreadable struct {
	RelativePath string
	Reason       string
}

func (Analyzed) outcome()   {}
func (Unreadable) outcome() {}

// ProjectSnapshot represents the file states seen by the previous scan of a workspace
type ProjectSnapshot struct {
	RootDir   string                  `json:"root_dir"`
	Timestamp time.Time               `json:"timestamp"`
	Files     map[string]FileSnapshot `json:"files"`
}

// FileSnapshot represents the state of a single exercise file
type FileSnapshot struct {
	RelativePath string    `json:"relative_path"`
	ModTime      time.Time `json:"mod_time"`
	Lines        int       `json:"lines"`
	Hash         string    `json:"hash"`
}
