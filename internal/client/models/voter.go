package models

import "time"

// Voter is the authenticated voter as returned by the backend.
// HasVoted changes only after a successful cast-vote response.
type Voter struct {
	ID       ID         `json:"id"`
	Name     string     `json:"name"`
	Aadhar   string     `json:"aadhar"`
	PhoneNo  string     `json:"phone_no"`
	StateID  ID         `json:"state_id"`
	HasVoted bool       `json:"has_voted"`
	VotedAt  *Timestamp `json:"voted_at"`
}

// Identified reports whether v can be named in a cast-vote request, either
// by id or by its aadhar, name and phone.
func (v Voter) Identified() bool {
	return v.ID != 0 || (v.Aadhar != "" && v.Name != "" && v.PhoneNo != "")
}

// BlockchainInfo is the backend's integrity attestation for the login. It is
// cached for display and never checked on the client.
type BlockchainInfo struct {
	BlockHash          string `json:"blockHash"`
	PreviousHash       string `json:"previousHash"`
	Timestamp          string `json:"timestamp"`
	VerificationStatus string `json:"verificationStatus"`
}

// User is the admin account returned by /login.
type User struct {
	UserID   ID     `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// AdminSession exists only after the backend accepted admin credentials.
type AdminSession struct {
	Token     string     `json:"token"`
	User      User       `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session has a known expiry before now.
func (s AdminSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// VoterRegistration is the admin "add voter" form.
type VoterRegistration struct {
	Name    string `json:"name" validate:"required,min=2"`
	Aadhar  string `json:"aadhar" validate:"aadhaar"`
	PhoneNo string `json:"phone_no" validate:"phone"`
	StateID ID     `json:"state_id" validate:"required"`
}
