package dto

import "github.com/alumniportal/mentoring-api/internal/models"

// RunMatchingResponse summarises an assignment engine invocation.
type RunMatchingResponse struct {
	ProgramID    string                      `json:"program_id"`
	CreatedCount int                         `json:"created_count"`
	Created      []models.Match              `json:"created"`
	Unmatched    []models.MenteeRegistration `json:"unmatched"`
}

// ManualMatchRequest is the operator payload for a hand-picked pairing.
type ManualMatchRequest struct {
	MenteeRegistrationID string `json:"mentee_registration_id" validate:"required"`
	MentorUserID         string `json:"mentor_user_id" validate:"required"`
}

const (
	RespondActionAccept = "accept"
	RespondActionReject = "reject"
)

// RespondRequest carries a mentor's decision on a pending match.
type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
	Reason string `json:"reason" validate:"omitempty,max=2000"`
}

// SweepResponse reports how many pending matches were auto-rejected.
type SweepResponse struct {
	AutoRejected int `json:"auto_rejected"`
}
