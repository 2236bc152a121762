package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used by polls.
const DateLayout = "2006-01-02"

type State struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Party appears both in /get_all_parties (key "id", with owning state) and
// inside polls (key "party_id").
type Party struct {
	ID           ID      `json:"id"`
	Name         string  `json:"name"`
	Abbreviation string  `json:"abbreviation"`
	Logo         *string `json:"logo"`
	StateID      ID      `json:"state_id,omitempty"`
	StateName    string  `json:"state_name,omitempty"`
}

func (p *Party) UnmarshalJSON(b []byte) error {
	type plain Party
	var aux struct {
		plain
		PartyID *ID `json:"party_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Party(aux.plain)
	if p.ID == 0 && aux.PartyID != nil {
		p.ID = *aux.PartyID
	}
	return nil
}

type Poll struct {
	ID          ID      `json:"poll_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	State       State   `json:"state"`
	Parties     []Party `json:"parties"`
}

// Party returns the poll's party with the given id.
func (p Poll) Party(id ID) (Party, bool) {
	for _, party := range p.Parties {
		if party.ID == id {
			return party, true
		}
	}
	return Party{}, false
}

// ClosedOn reports whether day falls after the poll's inclusive end date.
// A poll whose end date cannot be read is treated as open; the backend has
// the final word.
func (p Poll) ClosedOn(day time.Time) bool {
	end, ok := parseDay(p.EndDate)
	if !ok {
		return false
	}
	y, m, d := day.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today.After(end)
}

// parseDay reads the leading YYYY-MM-DD of a date or timestamp string.
func parseDay(s string) (time.Time, bool) {
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StateParties is one state group of a poll being conducted.
type StateParties struct {
	StateID   ID   `json:"state_id" validate:"required"`
	PartyList []ID `json:"party_list" validate:"min=1,dive,required"`
}

// PollForm is the admin "conduct poll" form; it is also the request body.
type PollForm struct {
	Name         string         `json:"name" validate:"required,min=2"`
	Description  string         `json:"description" validate:"required,min=2"`
	StartDate    string         `json:"start_date" validate:"isodate"`
	EndDate      string         `json:"end_date" validate:"isodate"`
	StateParties []StateParties `json:"state_parties" validate:"min=1,dive"`
}

// PartyRegistration is the admin "create party" form. LogoPath, when set,
// names a local image file uploaded with the form.
type PartyRegistration struct {
	Name         string `json:"name" validate:"required,min=2"`
	Abbreviation string `json:"abbreviation"`
	StateID      ID     `json:"state_id" validate:"required"`
	LogoPath     string `json:"logo"`
}
