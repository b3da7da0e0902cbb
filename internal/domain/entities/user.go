package entities

import (
	"strings"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// Email notification frequencies accepted by the comment platform.
const (
	FrequencyNever       = "never"
	FrequencyImmediately = "immediately"
	FrequencyHourly      = "hourly"
)

// EmailPreferences holds a user's comment notification settings. AutoFollow
// is tri-state: nil means the user never expressed a preference.
type EmailPreferences struct {
	Comments   string `json:"comments,omitempty" bson:"comments,omitempty"`
	Likes      string `json:"likes,omitempty" bson:"likes,omitempty"`
	Replies    string `json:"replies,omitempty" bson:"replies,omitempty"`
	AutoFollow *bool  `json:"autoFollow,omitempty" bson:"autoFollow,omitempty"`
}

// Validate rejects frequencies outside the accepted set. Empty fields are
// allowed; a partial update only touches the named preferences.
func (p *EmailPreferences) Validate() error {
	for _, freq := range []string{p.Comments, p.Likes, p.Replies} {
		switch freq {
		case "", FrequencyNever, FrequencyImmediately, FrequencyHourly:
		default:
			return errors.Newf(errors.KindInvalidInput, "invalid email preference frequency: %s", freq)
		}
	}
	return nil
}

// IsEmpty reports whether no preference field is set at all.
func (p *EmailPreferences) IsEmpty() bool {
	return p.Comments == "" && p.Likes == "" && p.Replies == "" && p.AutoFollow == nil
}

// BasicUserInfo is the profile data fetched lazily from the profile service.
// A present but empty Email still counts as populated and stops refetching.
type BasicUserInfo struct {
	Email     string `json:"email" bson:"email"`
	FirstName string `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty" bson:"lastName,omitempty"`
}

// NormalizePseudonym trims the display name and collapses runs of internal
// whitespace into single spaces.
func NormalizePseudonym(pseudonym string) string {
	return strings.Join(strings.Fields(pseudonym), " ")
}
