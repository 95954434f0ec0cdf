package models

import "time"

// ProgramStatistics aggregates match records for dashboard summary cards.
// RejectedTotal folds together mentor rejections and sweep auto-rejections.
// AverageScore covers every match carrying a score, manual matches included.
type ProgramStatistics struct {
	ProgramID        string    `json:"program_id"`
	Total            int       `json:"total"`
	Accepted         int       `json:"accepted"`
	Pending          int       `json:"pending"`
	RejectedTotal    int       `json:"rejected_total"`
	UnmatchedMentees int       `json:"unmatched_mentees"`
	AverageScore     float64   `json:"average_score"`
	PreferredMatches int       `json:"preferred_matches"`
	AlgorithmMatches int       `json:"algorithm_matches"`
	ManualMatches    int       `json:"manual_matches"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// MatchStatusCount is a grouped count row scanned from the matches table.
type MatchStatusCount struct {
	Status MatchStatus `db:"status"`
	Type   MatchType   `db:"match_type"`
	Count  int         `db:"count"`
}
