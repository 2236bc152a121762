package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/services"
)

// VoterLogin asks for the Aadhaar number and phone, then requests an OTP.
func (a *App) VoterLogin(ctx context.Context) error {
	aadhaar, err := GetSimpleText(a.reader, "Aadhaar number (12 digits)", a.out)
	if err != nil {
		return err
	}
	phone, err := GetSimpleText(a.reader, "Phone number (10 digits)", a.out)
	if err != nil {
		return err
	}

	if err := a.voting.SubmitCredentials(ctx, aadhaar, phone); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	return nil
}

func (a *App) SubmitOTP(ctx context.Context, code string) error {
	if err := a.warnOnly(a.voting.SubmitOTP(ctx, code)); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	return nil
}

func (a *App) ResendOTP(ctx context.Context) error {
	if err := a.voting.ResendOTP(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "A new OTP was sent.")
	return nil
}

// Polls loads the voter's polls and shows the selected one.
func (a *App) Polls(ctx context.Context) error {
	err := a.voting.FetchPolls(ctx)
	if errors.Is(err, services.ErrNoActivePoll) {
		fmt.Fprintln(a.out, "There is no active poll for your state right now.")
		return nil
	}
	if err != nil {
		return err
	}

	v := a.voting.Snapshot()
	if len(v.Polls) > 1 && v.Poll != nil {
		fmt.Fprint(a.out, RenderPolls(v.Polls, v.Poll.ID))
		fmt.Fprintln(a.out, "Type 'poll <id>' to switch.")
	}
	fmt.Fprint(a.out, RenderVoting(v))
	return nil
}

func (a *App) SelectPoll(ctx context.Context, arg string) error {
	id, err := models.ParseID(arg)
	if err != nil {
		return err
	}
	if err := a.voting.SelectPoll(id); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	return nil
}

func (a *App) SelectParty(ctx context.Context, arg string) error {
	id, err := models.ParseID(arg)
	if err != nil {
		return err
	}
	if err := a.voting.SelectParty(id); err != nil {
		return err
	}
	v := a.voting.Snapshot()
	if v.Poll != nil {
		if p, ok := v.Poll.Party(id); ok {
			fmt.Fprintf(a.out, "Selected %s. Type 'vote' to cast your vote.\n", p.Name)
		}
	}
	return nil
}

func (a *App) Vote(ctx context.Context) error {
	err := a.warnOnly(a.voting.SubmitVote(ctx))
	if errors.Is(err, services.ErrAlreadyVoted) {
		fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	return nil
}

func (a *App) Retry(ctx context.Context) error {
	if err := a.voting.Retry(); err != nil {
		return err
	}
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	return nil
}

func (a *App) VoterLogout(ctx context.Context) error {
	if err := a.warnOnly(a.voting.Logout(ctx)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
