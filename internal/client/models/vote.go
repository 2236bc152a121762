package models

import "time"

// CastVoteRequest identifies the voter by id when known, otherwise by the
// aadhar/name/phone triple.
type CastVoteRequest struct {
	VoterID ID     `json:"voter_id,omitempty"`
	Aadhar  string `json:"aadhar,omitempty"`
	Name    string `json:"name,omitempty"`
	PhoneNo string `json:"phone_no,omitempty"`
	PartyID ID     `json:"party_id"`
	PollID  ID     `json:"poll_id"`
	StateID ID     `json:"state_id,omitempty"`
}

type CastVoteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VoteReceipt is what the voting flow keeps after a confirmed vote.
type VoteReceipt struct {
	PollID    ID
	PartyID   ID
	Message   string
	RequestID string
	At        time.Time
}

// PartyStatistic is one row of the party-wise tally.
type PartyStatistic struct {
	ID         ID      `json:"id"`
	Name       string  `json:"name"`
	Logo       *string `json:"logo"`
	StateID    ID      `json:"state_id"`
	StateName  string  `json:"state_name"`
	Votes      Figure  `json:"votes"`
	Percentage Figure  `json:"percentage"`
}

// Tally is the backend's aggregate; figures are displayed as received.
type Tally struct {
	Message          string           `json:"message"`
	TotalVoters      Figure           `json:"totalVoters"`
	TotalVotesCast   Figure           `json:"totalVotesCast"`
	VotingPercentage Figure           `json:"votingPercentage"`
	Statistics       []PartyStatistic `json:"statistics"`
}
