package models

import "time"

// Rating is a 1-5 star review by one party to a completed loan about the
// counterparty. Immutable once created; one per direction per agreement.
type Rating struct {
	ID            int64     `json:"id"`
	AgreementID   int64     `json:"agreement_id"`
	RaterID       int64     `json:"rater_id"`
	RateeID       int64     `json:"ratee_id"`
	Stars         int       `json:"stars"`
	Communication int       `json:"communication"`
	Timeliness    int       `json:"timeliness"`
	Reliability   int       `json:"reliability"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks star ranges. Category sub-scores of zero mean "not rated".
func (r *Rating) Validate() error {
	if r.Stars < 1 || r.Stars > 5 {
		return NewValidationError("stars must be between 1 and 5, got %d", r.Stars)
	}
	for _, v := range []struct {
		name  string
		value int
	}{
		{"communication", r.Communication},
		{"timeliness", r.Timeliness},
		{"reliability", r.Reliability},
	} {
		if v.value != 0 && (v.value < 1 || v.value > 5) {
			return NewValidationError("%s must be between 1 and 5, got %d", v.name, v.value)
		}
	}
	return nil
}
