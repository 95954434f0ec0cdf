package models

import "time"

// MatchStatus represents the lifecycle of a match.
type MatchStatus string

// Possible match statuses. ACCEPTED, REJECTED and AUTO_REJECTED are terminal.
const (
	MatchStatusPending      MatchStatus = "PENDING_MENTOR_ACCEPTANCE"
	MatchStatusAccepted     MatchStatus = "ACCEPTED"
	MatchStatusRejected     MatchStatus = "REJECTED"
	MatchStatusAutoRejected MatchStatus = "AUTO_REJECTED"
)

// Terminal reports whether the status permits no further transitions.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchStatusAccepted, MatchStatusRejected, MatchStatusAutoRejected:
		return true
	}
	return false
}

// MatchType records how a pairing came to be.
type MatchType string

const (
	MatchTypePreferred MatchType = "PREFERRED"
	MatchTypeAlgorithm MatchType = "ALGORITHM"
	MatchTypeManual    MatchType = "MANUAL"
)

// AutoRejectReason is recorded when the sweep expires a pending match.
const AutoRejectReason = "Auto-rejected: mentor did not respond within the acceptance window"

// Match is a mentor-mentee pairing produced by the assignment engine or a
// manual override. At most one non-terminal match may exist per mentee and
// program; the matches table enforces this with a partial unique index.
type Match struct {
	ID                   string      `db:"id" json:"id"`
	ProgramID            string      `db:"program_id" json:"program_id"`
	TenantID             string      `db:"tenant_id" json:"tenant_id"`
	MentorUserID         string      `db:"mentor_user_id" json:"mentor_user_id"`
	MenteeUserID         string      `db:"mentee_user_id" json:"mentee_user_id"`
	MentorRegistrationID string      `db:"mentor_registration_id" json:"mentor_registration_id"`
	MenteeRegistrationID string      `db:"mentee_registration_id" json:"mentee_registration_id"`
	Status               MatchStatus `db:"status" json:"status"`
	MatchType            MatchType   `db:"match_type" json:"match_type"`
	MatchScore           float64     `db:"match_score" json:"match_score"`
	MatchedAt            time.Time   `db:"matched_at" json:"matched_at"`
	AutoRejectAt         time.Time   `db:"auto_reject_at" json:"auto_reject_at"`
	RespondedAt          *time.Time  `db:"responded_at" json:"responded_at,omitempty"`
	RejectionReason      *string     `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// MatchDetail enriches Match with mentor and mentee display names resolved by
// a read-side join.
type MatchDetail struct {
	Match
	MentorName string `db:"mentor_name" json:"mentor_name"`
	MenteeName string `db:"mentee_name" json:"mentee_name"`
}

// MatchFilter provides filters for listing matches.
type MatchFilter struct {
	ProgramID    string
	Status       MatchStatus
	MatchType    MatchType
	MentorUserID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
