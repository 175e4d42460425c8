package persistence

import "time"

// RunRecord is the stored outcome of one pipeline run over one media file.
type RunRecord struct {
	ID          string
	MediaPath   string
	OutputPath  string
	ChunksTotal int
	Accepted    int
	CacheHits   int
	Failed      int
	Unattempted int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}
