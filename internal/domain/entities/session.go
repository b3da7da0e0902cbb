package entities

import "time"

// SessionData is the validated session returned by the session API.
type SessionData struct {
	UUID         string    `json:"uuid" bson:"uuid"`
	CreationTime time.Time `json:"creationTime" bson:"creationTime"`
	RememberMe   bool      `json:"rememberMe" bson:"rememberMe"`
}

// AuthMetadata is the comment-platform auth bundle for a session. A nil
// AuthMetadata cached against a valid session means the user has not chosen
// a pseudonym yet.
type AuthMetadata struct {
	Token            string            `json:"token" bson:"token"`
	Expires          time.Time         `json:"expires" bson:"expires"`
	Pseudonym        string            `json:"displayName" bson:"pseudonym"`
	EmailPreferences *EmailPreferences `json:"settings,omitempty" bson:"emailPreferences,omitempty"`
}

// SessionExpiry computes when a session's persisted record should expire.
// The window depends on the rememberMe flag and is computed once, on first
// insert. A session nearing its natural expiry still gets a usable cache
// entry: the result is never earlier than now+floor.
func SessionExpiry(creationTime time.Time, rememberMe bool, validity, rememberedValidity, floor time.Duration, now time.Time) time.Time {
	window := validity
	if rememberMe {
		window = rememberedValidity
	}

	expires := creationTime.Add(window)
	if minimum := now.Add(floor); expires.Before(minimum) {
		return minimum
	}
	return expires
}
