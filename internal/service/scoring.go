package service

import (
	"math"
	"strings"

	"github.com/alumniportal/mentoring-api/internal/models"
)

// MatchingWeights holds the relative weight of each compatibility component.
// The four weights must sum to 1.0.
type MatchingWeights struct {
	Industry   float64
	Programme  float64
	Skills     float64
	Preference float64
}

// DefaultMatchingWeights returns the standard weighting.
func DefaultMatchingWeights() MatchingWeights {
	return MatchingWeights{
		Industry:   0.30,
		Programme:  0.20,
		Skills:     0.10,
		Preference: 0.40,
	}
}

// Valid reports whether the weights are non-negative and sum to 1.0.
func (w MatchingWeights) Valid() bool {
	if w.Industry < 0 || w.Programme < 0 || w.Skills < 0 || w.Preference < 0 {
		return false
	}
	sum := w.Industry + w.Programme + w.Skills + w.Preference
	return math.Abs(sum-1.0) < 1e-9
}

// relatedIndustries groups industries into coarse categories. Two distinct
// industries in the same category earn partial credit.
var relatedIndustries = map[string]string{
	"software":               "technology",
	"information technology": "technology",
	"telecommunications":     "technology",
	"cybersecurity":          "technology",
	"fintech":                "finance",
	"banking":                "finance",
	"insurance":              "finance",
	"accounting":             "finance",
	"hospital":               "healthcare",
	"pharmaceuticals":        "healthcare",
	"biotechnology":          "healthcare",
	"primary education":      "education",
	"higher education":       "education",
	"civil engineering":      "engineering",
	"mechanical engineering": "engineering",
	"electrical engineering": "engineering",
}

// relatedProgrammes groups academic programmes into disciplines for the
// taxonomy-distance grading of the programme component.
var relatedProgrammes = map[string]string{
	"computer science":        "computing",
	"software engineering":    "computing",
	"information systems":     "computing",
	"data science":            "computing",
	"business administration": "business",
	"economics":               "business",
	"finance":                 "business",
	"marketing":               "business",
	"medicine":                "health",
	"nursing":                 "health",
	"public health":           "health",
	"law":                     "law",
	"mechanical engineering":  "engineering",
	"civil engineering":       "engineering",
	"electrical engineering":  "engineering",
}

// Scorer computes compatibility between a mentor and a mentee. Pure and
// deterministic so matching runs can be replayed and tested.
type Scorer struct {
	weights MatchingWeights
}

// NewScorer builds a scorer, falling back to the default weighting when the
// provided weights do not sum to 1.0.
func NewScorer(weights MatchingWeights) *Scorer {
	if !weights.Valid() {
		weights = DefaultMatchingWeights()
	}
	return &Scorer{weights: weights}
}

// Score returns the weighted compatibility score in [0,100]. A mentee with an
// empty preference list caps out at 100 minus the preference weight share,
// which is intentional: non-expressing mentees rely on algorithmic fit alone.
func (s *Scorer) Score(mentor *models.MentorRegistration, mentee *models.MenteeRegistration) float64 {
	industry := industryScore(mentor.Industry, mentee.TargetIndustry)
	programme := programmeScore(mentor.Programme, mentee.Programme)
	skills := skillsScore(mentor.Skills, mentee.Skills)
	preference := preferenceScore(mentor, mentee.PreferredMentors)

	total := s.weights.Industry*industry +
		s.weights.Programme*programme +
		s.weights.Skills*skills +
		s.weights.Preference*preference

	return math.Round(total*100) / 100
}

func industryScore(mentorIndustry, menteeIndustry string) float64 {
	a := normalizeTerm(mentorIndustry)
	b := normalizeTerm(menteeIndustry)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	catA, okA := relatedIndustries[a]
	catB, okB := relatedIndustries[b]
	if okA && okB && catA == catB {
		return 50
	}
	return 0
}

func programmeScore(mentorProgramme, menteeProgramme string) float64 {
	a := normalizeTerm(mentorProgramme)
	b := normalizeTerm(menteeProgramme)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	catA, okA := relatedProgrammes[a]
	catB, okB := relatedProgrammes[b]
	if okA && okB && catA == catB {
		return 60
	}
	return 0
}

func skillsScore(mentorSkills, menteeSkills []string) float64 {
	if len(menteeSkills) == 0 {
		return 0
	}
	mentorSet := make(map[string]struct{}, len(mentorSkills))
	for _, skill := range mentorSkills {
		mentorSet[normalizeTerm(skill)] = struct{}{}
	}
	overlap := 0
	seen := make(map[string]struct{}, len(menteeSkills))
	total := 0
	for _, skill := range menteeSkills {
		key := normalizeTerm(skill)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		total++
		if _, ok := mentorSet[key]; ok {
			overlap++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(overlap) / float64(total) * 100
}

// preferenceScore is position-independent: any listed slot earns the full
// bonus. List order matters only during the preferred assignment pass.
func preferenceScore(mentor *models.MentorRegistration, preferred []string) float64 {
	for _, id := range preferred {
		if id == mentor.UserID || id == mentor.ID {
			return 100
		}
	}
	return 0
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
