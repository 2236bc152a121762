package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/services"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/client/validation"
)

// Renderers are pure: the same view always yields the same text.

// RenderVoting describes the voter flow step and what the voter can do next.
func RenderVoting(v services.VotingView) string {
	var b strings.Builder

	switch v.State {
	case services.Unauthenticated:
		b.WriteString("Not logged in. Type 'login' to start.\n")
	case services.CredentialsSubmitted:
		b.WriteString("Checking your details...\n")
	case services.OtpPending:
		fmt.Fprintf(&b, "An OTP was sent to %s. Type 'otp <code>' or 'resend'.\n", maskPhone(v.PhoneNo))
	case services.Authenticated:
		writeVoter(&b, v)
		b.WriteString("Type 'polls' to see the poll for your state.\n")
	case services.PollLoaded:
		writeVoter(&b, v)
		if v.Poll != nil {
			b.WriteString(RenderPoll(*v.Poll, v.SelectedParty))
		}
		if v.SelectedParty == 0 {
			b.WriteString("Type 'select <party id>' to choose a party.\n")
		} else {
			b.WriteString("Type 'vote' to cast your vote.\n")
		}
	case services.AlreadyVoted:
		writeVoter(&b, v)
		b.WriteString("You have already voted. Thank you!\n")
	case services.VoteSubmitting:
		b.WriteString("Submitting your vote...\n")
	case services.VoteConfirmed:
		writeVoter(&b, v)
		if r := v.Receipt; r != nil {
			msg := r.Message
			if msg == "" {
				msg = "Vote cast successfully"
			}
			fmt.Fprintf(&b, "%s (poll %s, party %s, ref %s)\n", msg, r.PollID, r.PartyID, r.RequestID)
		}
	case services.VoteRejected:
		b.WriteString("Your vote was not accepted. Type 'retry' to go back to the poll.\n")
	}

	if v.Err != nil && v.State != services.AlreadyVoted {
		fmt.Fprintf(&b, "Last error: %s\n", describeError(v.Err))
	}
	return b.String()
}

func writeVoter(b *strings.Builder, v services.VotingView) {
	if v.Voter == nil {
		return
	}
	fmt.Fprintf(b, "Voter: %s (Aadhaar %s)\n", v.Voter.Name, v.Voter.Aadhar)
	if v.Voter.VotedAt != nil {
		fmt.Fprintf(b, "Voted at: %s\n", v.Voter.VotedAt.Format("2006-01-02 15:04"))
	}
	if bc := v.Blockchain; bc != nil && bc.BlockHash != "" {
		fmt.Fprintf(b, "Block: %s (%s)\n", bc.BlockHash, bc.VerificationStatus)
	}
}

// RenderPoll shows one poll with its parties; selected is marked.
func RenderPoll(p models.Poll, selected models.ID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Poll %s: %s\n", p.ID, p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "  %s\n", p.Description)
	}
	fmt.Fprintf(&b, "  Open %s to %s", day(p.StartDate), day(p.EndDate))
	if p.State.Name != "" {
		fmt.Fprintf(&b, ", %s", p.State.Name)
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tID\tPARTY\tABBR")
	for _, party := range p.Parties {
		mark := " "
		if party.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", mark, party.ID, party.Name, party.Abbreviation)
	}
	_ = tw.Flush()
	return b.String()
}

// RenderPolls lists polls, marking the current one.
func RenderPolls(polls []models.Poll, current models.ID) string {
	if len(polls) == 0 {
		return "No polls.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tNAME\tFROM\tTO")
	for _, p := range polls {
		mark := " "
		if p.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, p.ID, p.Name, day(p.StartDate), day(p.EndDate))
	}
	_ = tw.Flush()
	return b.String()
}

// RenderTally prints the dashboard figures exactly as the backend sent them.
func RenderTally(t models.Tally) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total voters:     %s\n", t.TotalVoters)
	fmt.Fprintf(&b, "Votes cast:       %s\n", t.TotalVotesCast)
	fmt.Fprintf(&b, "Voting percentage: %s\n", t.VotingPercentage)

	if len(t.Statistics) == 0 {
		b.WriteString("No votes recorded.\n")
		return b.String()
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARTY\tSTATE\tVOTES\tPERCENTAGE")
	for _, s := range t.Statistics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.StateName, s.Votes, s.Percentage)
	}
	_ = tw.Flush()
	return b.String()
}

func RenderStates(states []models.State) string {
	if len(states) == 0 {
		return "No states.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tABBR")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Abbreviation)
	}
	_ = tw.Flush()
	return b.String()
}

func RenderParties(parties []models.Party) string {
	if len(parties) == 0 {
		return "No parties.\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARTY\tABBR\tSTATE")
	for _, p := range parties {
		state := p.StateName
		if state == "" && p.StateID != 0 {
			state = p.StateID.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Abbreviation, state)
	}
	_ = tw.Flush()
	return b.String()
}

// RenderAdmin summarizes the admin session.
func RenderAdmin(v services.AdminView) string {
	var b strings.Builder
	if v.Session == nil {
		b.WriteString("Admin: not logged in. Type 'admin-login'.\n")
	} else {
		u := v.Session.User
		name := u.Username
		if name == "" {
			name = u.Email
		}
		fmt.Fprintf(&b, "Admin: %s", name)
		if u.Role != "" {
			fmt.Fprintf(&b, " (%s)", u.Role)
		}
		b.WriteString("\n")
	}
	if v.LastPoll != nil {
		fmt.Fprintf(&b, "Last poll created: %s %s\n", v.LastPoll.ID, v.LastPoll.Name)
	}
	if v.Draft.Name != "" {
		fmt.Fprintf(&b, "Unsent poll draft: %s (%s to %s)\n", v.Draft.Name, v.Draft.StartDate, v.Draft.EndDate)
	}
	if v.Err != nil {
		fmt.Fprintf(&b, "Last error: %s\n", describeError(v.Err))
	}
	return b.String()
}

// describeError turns an error into text for the user. Field errors are
// listed one per line; backend messages are shown as sent.
func describeError(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		if len(verr.Fields) == 1 {
			return verr.Fields[0].Message
		}
		msgs := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			msgs[i] = "  - " + f.Message
		}
		return "please fix:\n" + strings.Join(msgs, "\n")
	}
	if errors.Is(err, session.ErrNotPersisted) {
		return "saved for this run only: " + err.Error()
	}
	return err.Error()
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// day trims a timestamp to its calendar date.
func day(s string) string {
	if len(s) > len(models.DateLayout) {
		return s[:len(models.DateLayout)]
	}
	return s
}
