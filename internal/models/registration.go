package models

import (
	"time"

	"github.com/lib/pq"
)

// RegistrationStatus represents the review state of a registration.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusSubmitted RegistrationStatus = "SUBMITTED"
	RegistrationStatusApproved  RegistrationStatus = "APPROVED"
	RegistrationStatusRejected  RegistrationStatus = "REJECTED"
)

// MaxPreferredMentors caps the ordered preference list on mentee registrations.
const MaxPreferredMentors = 3

// MentorRegistration captures an approved alumnus offering mentoring within a
// program. Scoring-relevant profile fields are denormalised onto the record so
// the assignment engine never chases display data.
type MentorRegistration struct {
	ID               string             `db:"id" json:"id"`
	ProgramID        string             `db:"program_id" json:"program_id"`
	UserID           string             `db:"user_id" json:"user_id"`
	TenantID         string             `db:"tenant_id" json:"tenant_id"`
	Status           RegistrationStatus `db:"status" json:"status"`
	AreasOfMentoring pq.StringArray     `db:"areas_of_mentoring" json:"areas_of_mentoring"`
	Industry         string             `db:"industry" json:"industry"`
	Programme        string             `db:"programme" json:"programme"`
	Skills           pq.StringArray     `db:"skills" json:"skills"`
	Capacity         *int               `db:"capacity" json:"capacity,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// EffectiveCapacity resolves the mentor's mentee limit against the fallback
// configured for the engine.
func (m *MentorRegistration) EffectiveCapacity(fallback int) int {
	if m.Capacity != nil && *m.Capacity > 0 {
		return *m.Capacity
	}
	return fallback
}

// MenteeRegistration captures an approved mentee with an ordered list of up to
// three preferred mentor user IDs.
type MenteeRegistration struct {
	ID               string             `db:"id" json:"id"`
	ProgramID        string             `db:"program_id" json:"program_id"`
	UserID           string             `db:"user_id" json:"user_id"`
	TenantID         string             `db:"tenant_id" json:"tenant_id"`
	Status           RegistrationStatus `db:"status" json:"status"`
	AreasOfMentoring pq.StringArray     `db:"areas_of_mentoring" json:"areas_of_mentoring"`
	TargetIndustry   string             `db:"target_industry" json:"target_industry"`
	Programme        string             `db:"programme" json:"programme"`
	Skills           pq.StringArray     `db:"skills" json:"skills"`
	PreferredMentors pq.StringArray     `db:"preferred_mentors" json:"preferred_mentors"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// MenteeRegistrationDetail enriches MenteeRegistration with display data for
// list endpoints. Joins happen on the read side only.
type MenteeRegistrationDetail struct {
	MenteeRegistration
	MenteeName  string `db:"mentee_name" json:"mentee_name"`
	MenteeEmail string `db:"mentee_email" json:"mentee_email"`
}
