package models

import "time"

// MentoringProgram models a mentoring cohort with its registration and
// matching windows.
type MentoringProgram struct {
	ID                        string    `db:"id" json:"id"`
	TenantID                  string    `db:"tenant_id" json:"tenant_id"`
	Name                      string    `db:"name" json:"name"`
	Description               string    `db:"description" json:"description"`
	RegistrationEndDateMentor time.Time `db:"registration_end_date_mentor" json:"registration_end_date_mentor"`
	RegistrationEndDateMentee time.Time `db:"registration_end_date_mentee" json:"registration_end_date_mentee"`
	MatchingEndDate           time.Time `db:"matching_end_date" json:"matching_end_date"`
	MaxMenteesPerMentor       *int      `db:"max_mentees_per_mentor" json:"max_mentees_per_mentor,omitempty"`
	CreatedAt                 time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at" json:"updated_at"`
}

// RegistrationClosed reports whether both registration windows have ended.
func (p *MentoringProgram) RegistrationClosed(now time.Time) bool {
	return now.After(p.RegistrationEndDateMentor) && now.After(p.RegistrationEndDateMentee)
}

// MatchingOpen reports whether matching may still be initiated.
func (p *MentoringProgram) MatchingOpen(now time.Time) bool {
	return now.Before(p.MatchingEndDate)
}

// ProgramFilter captures filtering criteria for listing programs.
type ProgramFilter struct {
	TenantID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
