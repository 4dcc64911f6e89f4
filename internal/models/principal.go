package models

import "github.com/google/uuid"

// Principal is the authenticated caller of an API request
type Principal struct {
	UserID  uuid.UUID `json:"user_id"`
	Subject string    `json:"subject,omitempty"`
	Email   string    `json:"email,omitempty"`
}

// PrincipalFromSubject maps a token subject to a stable user id. Subjects that are
// already UUIDs are used as-is; anything else is hashed under the issuer.
func PrincipalFromSubject(issuer, subject, email string) Principal {
	id, err := uuid.Parse(subject)
	if err != nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(issuer+"#"+subject))
	}
	return Principal{UserID: id, Subject: subject, Email: email}
}
