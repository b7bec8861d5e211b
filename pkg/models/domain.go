package models

// Track is an indexed dataset file.
type Track struct {
	ID         string // Database ID (UUID)
	Filename   string // Dataset filename, unique
	Title      string // From tags, falls back to the filename stem
	Artist     string
	DurationMs int
}

// AudioMatch is one entry of a similarity query result.
type AudioMatch struct {
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"` // percentage, 0-100
	Score      int     `json:"score,omitempty"`
	OffsetMs   int32   `json:"offsetMs,omitempty"`
}

// QueryResult is what a similarity query returns: matches ordered by
// descending similarity plus the wall time the query took.
type QueryResult struct {
	Matches         []AudioMatch `json:"matches"`
	ExecutionTimeMs float64      `json:"executionTime"`
}

// Stats summarises the index.
type Stats struct {
	TrackCount       int
	FingerprintCount int64
}
