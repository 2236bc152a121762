package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ballot/internal/client/models"
)

func (a *App) AdminLogin(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Admin username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	if err := a.warnOnly(a.admin.Login(ctx, username, password)); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderAdmin(a.admin.Snapshot()))
	return nil
}

func (a *App) AdminLogout(ctx context.Context) error {
	if err := a.warnOnly(a.admin.Logout(ctx)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Admin logged out.")
	return nil
}

func (a *App) Dashboard(ctx context.Context) error {
	tally, err := a.admin.LoadDashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderTally(*tally))
	return nil
}

// Conduct collects the conduct-poll form. A draft left by a rejected
// submission can be resent as is.
func (a *App) Conduct(ctx context.Context) error {
	if draft := a.admin.Draft(); draft.Name != "" {
		answer, err := GetSimpleText(a.reader, fmt.Sprintf("Resend unsent poll %q? (y/N)", draft.Name), a.out)
		if err != nil {
			return err
		}
		if strings.EqualFold(answer, "y") {
			return a.submitPoll(ctx, draft)
		}
	}

	if err := a.admin.LoadFormOptions(ctx); err != nil {
		return err
	}

	var form models.PollForm
	var err error
	if form.Name, err = GetSimpleText(a.reader, "Poll name", a.out); err != nil {
		return err
	}
	if form.Description, err = GetSimpleText(a.reader, "Description", a.out); err != nil {
		return err
	}
	if form.StartDate, err = GetSimpleText(a.reader, "Start date (YYYY-MM-DD)", a.out); err != nil {
		return err
	}
	if form.EndDate, err = GetSimpleText(a.reader, "End date (YYYY-MM-DD)", a.out); err != nil {
		return err
	}

	fmt.Fprint(a.out, RenderStates(a.admin.Snapshot().States))
	for {
		stateID, err := GetID(a.reader, "State id to add (empty to finish)", a.out)
		if err != nil {
			return err
		}
		if stateID == 0 {
			break
		}
		fmt.Fprint(a.out, RenderParties(a.admin.PartiesForState(stateID)))
		parties, err := GetIDList(a.reader, fmt.Sprintf("Party ids for state %s (comma separated)", stateID), a.out)
		if err != nil {
			return err
		}
		form.StateParties = append(form.StateParties, models.StateParties{StateID: stateID, PartyList: parties})
	}

	return a.submitPoll(ctx, form)
}

// submitPoll sends form and shows the dashboard once the poll exists.
func (a *App) submitPoll(ctx context.Context, form models.PollForm) error {
	poll, err := a.admin.ConductPoll(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Poll %s created: %s\n", poll.ID, poll.Name)
	return a.Dashboard(ctx)
}

func (a *App) AddVoter(ctx context.Context) error {
	var reg models.VoterRegistration
	var err error
	if reg.Name, err = GetSimpleText(a.reader, "Voter name", a.out); err != nil {
		return err
	}
	if reg.Aadhar, err = GetSimpleText(a.reader, "Aadhaar number (12 digits)", a.out); err != nil {
		return err
	}
	if reg.PhoneNo, err = GetSimpleText(a.reader, "Phone number (10 digits)", a.out); err != nil {
		return err
	}
	if reg.StateID, err = GetID(a.reader, "State id", a.out); err != nil {
		return err
	}

	voter, err := a.admin.RegisterVoter(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Voter %s registered: %s\n", voter.ID, voter.Name)
	return nil
}

func (a *App) CreateParty(ctx context.Context) error {
	var reg models.PartyRegistration
	var err error
	if reg.Name, err = GetSimpleText(a.reader, "Party name", a.out); err != nil {
		return err
	}
	if reg.Abbreviation, err = GetSimpleText(a.reader, "Abbreviation", a.out); err != nil {
		return err
	}
	if reg.StateID, err = GetID(a.reader, "State id", a.out); err != nil {
		return err
	}
	if reg.LogoPath, err = GetSimpleText(a.reader, "Logo file (empty for none)", a.out); err != nil {
		return err
	}

	party, err := a.admin.CreateParty(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Party %s created: %s\n", party.ID, party.Name)
	return nil
}

func (a *App) States(ctx context.Context) error {
	if err := a.admin.LoadFormOptions(ctx); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderStates(a.admin.Snapshot().States))
	return nil
}

// Parties lists all parties, or only those of stateID when given.
func (a *App) Parties(ctx context.Context, stateID string) error {
	if err := a.admin.LoadFormOptions(ctx); err != nil {
		return err
	}
	if stateID == "" {
		fmt.Fprint(a.out, RenderParties(a.admin.Snapshot().Parties))
		return nil
	}
	id, err := models.ParseID(stateID)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderParties(a.admin.PartiesForState(id)))
	return nil
}

func (a *App) ResetPolls(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "This deletes every poll and vote. Type 'yes' to continue", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	if err := a.admin.ResetAllPolls(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All polls were reset.")
	return nil
}
