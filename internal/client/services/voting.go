// Package services holds the flow controllers behind the terminal UI: the
// voter's login-to-vote flow and the admin flow. Controllers keep the
// state of one user session, talk to the backend through client.Client
// and record identity in a session.Store.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/client/validation"
	"github.com/dmitrijs2005/ballot/internal/logging"
)

// VotingState is a step of the voter flow.
type VotingState int

const (
	Unauthenticated VotingState = iota
	CredentialsSubmitted
	OtpPending
	Authenticated
	PollLoaded
	AlreadyVoted
	VoteSubmitting
	VoteConfirmed
	VoteRejected
)

var votingStateNames = [...]string{
	Unauthenticated:      "unauthenticated",
	CredentialsSubmitted: "credentials submitted",
	OtpPending:           "otp pending",
	Authenticated:        "authenticated",
	PollLoaded:           "poll loaded",
	AlreadyVoted:         "already voted",
	VoteSubmitting:       "vote submitting",
	VoteConfirmed:        "vote confirmed",
	VoteRejected:         "vote rejected",
}

func (s VotingState) String() string {
	if s < 0 || int(s) >= len(votingStateNames) {
		return fmt.Sprintf("VotingState(%d)", int(s))
	}
	return votingStateNames[s]
}

var (
	// ErrAlreadyVoted is returned when the voter's has_voted flag is set.
	ErrAlreadyVoted = errors.New("you have already voted")
	// ErrNoActivePoll is returned when the backend lists no poll for the
	// voter's state.
	ErrNoActivePoll = errors.New("no active poll for your state")
)

const (
	reqLogin requestKind = "login_voter"
	reqOTP   requestKind = "verify_otp"
	reqPolls requestKind = "get_all_polls"
	reqVote  requestKind = "cast_vote"
)

// VotingView is a point-in-time copy of the flow for rendering.
type VotingView struct {
	State         VotingState
	Voter         *models.Voter
	Blockchain    *models.BlockchainInfo
	PhoneNo       string
	Polls         []models.Poll
	Poll          *models.Poll
	SelectedParty models.ID
	Receipt       *models.VoteReceipt
	Err           error
}

// VotingFlow drives one voter from credentials to a confirmed vote.
type VotingFlow struct {
	client  client.Client
	session *session.Store
	log     logging.Logger
	now     func() time.Time
	reqs    *tracker

	mu      sync.Mutex
	state   VotingState
	aadhar  string
	phone   string
	polls   []models.Poll
	poll    int
	party   models.ID
	receipt *models.VoteReceipt
	lastErr error
}

// NewVotingFlow returns a flow that resumes from the voter already held in
// s, if any.
func NewVotingFlow(c client.Client, s *session.Store, log logging.Logger) *VotingFlow {
	if log == nil {
		log = logging.Nop()
	}
	f := &VotingFlow{
		client:  c,
		session: s,
		log:     log.With("component", "voting"),
		now:     time.Now,
		reqs:    newTracker(),
		poll:    -1,
	}
	if v, ok := s.Current(); ok {
		f.state = Authenticated
		if v.HasVoted {
			f.state = AlreadyVoted
		}
	}
	return f
}

// SubmitCredentials checks the Aadhaar number and phone locally and asks
// the backend to send an OTP. Invalid input never reaches the network.
func (f *VotingFlow) SubmitCredentials(ctx context.Context, aadhaar, phone string) error {
	f.mu.Lock()
	if f.state != Unauthenticated {
		defer f.mu.Unlock()
		return f.wrongState("login")
	}
	aadhar, phoneNo, err := validation.Credentials(aadhaar, phone)
	if err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	ctx, id, err := f.reqs.begin(ctx, reqLogin)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.state = CredentialsSubmitted
	f.lastErr = nil
	f.mu.Unlock()

	_, err = f.client.LoginVoter(ctx, aadhar, phoneNo)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reqs.finish(reqLogin, id) {
		return ErrStaleResponse
	}
	if err != nil {
		f.state = Unauthenticated
		f.lastErr = err
		return err
	}
	f.state = OtpPending
	f.aadhar, f.phone = aadhar, phoneNo
	f.log.Info(ctx, "otp requested", "request_id", id)
	return nil
}

// ResendOTP repeats the credential request while an OTP is pending.
func (f *VotingFlow) ResendOTP(ctx context.Context) error {
	f.mu.Lock()
	if f.state != OtpPending {
		defer f.mu.Unlock()
		return f.wrongState("resend")
	}
	ctx, id, err := f.reqs.begin(ctx, reqLogin)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	aadhar, phone := f.aadhar, f.phone
	f.mu.Unlock()

	_, err = f.client.LoginVoter(ctx, aadhar, phone)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reqs.finish(reqLogin, id) {
		return ErrStaleResponse
	}
	f.lastErr = err
	return err
}

// SubmitOTP verifies code. On success the voter and blockchain info are
// stored in the session; on failure the flow stays at the OTP step.
//
// An error matching session.ErrNotPersisted means the login took effect
// but will not survive a restart.
func (f *VotingFlow) SubmitOTP(ctx context.Context, code string) error {
	f.mu.Lock()
	if f.state != OtpPending {
		defer f.mu.Unlock()
		return f.wrongState("otp")
	}
	otp, err := validation.OTP(code)
	if err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	ctx, id, err := f.reqs.begin(ctx, reqOTP)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	phone := f.phone
	f.mu.Unlock()

	voter, bc, err := f.client.VerifyOTP(ctx, phone, otp)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reqs.finish(reqOTP, id) {
		return ErrStaleResponse
	}
	if err != nil {
		f.lastErr = err
		return err
	}
	if voter == nil {
		voter = &models.Voter{}
	}
	if voter.Aadhar == "" {
		voter.Aadhar = f.aadhar
	}
	if voter.PhoneNo == "" {
		voter.PhoneNo = f.phone
	}
	if !voter.Identified() {
		err := fmt.Errorf("%w: verified voter has neither id nor name", client.ErrServer)
		f.lastErr = err
		f.log.Warn(ctx, "otp accepted for unidentifiable voter", "request_id", id)
		return err
	}

	if bc == nil {
		bc = &models.BlockchainInfo{}
	}
	f.state = Authenticated
	f.lastErr = nil
	f.aadhar, f.phone = "", ""
	f.log.Info(ctx, "voter authenticated", "voter_id", voter.ID, "request_id", id)

	if err := f.session.Login(ctx, *voter, *bc); err != nil {
		return fmt.Errorf("login not saved: %w", err)
	}
	return nil
}

// FetchPolls loads the polls for the voter's state and selects the first
// one. A voter who has already voted goes to AlreadyVoted without a
// request.
func (f *VotingFlow) FetchPolls(ctx context.Context) error {
	voter, ok := f.session.Current()

	f.mu.Lock()
	if !ok {
		defer f.mu.Unlock()
		return f.wrongState("polls")
	}
	if voter.HasVoted {
		defer f.mu.Unlock()
		f.state = AlreadyVoted
		return nil
	}
	if !fetchesPolls(f.state) {
		defer f.mu.Unlock()
		return f.wrongState("polls")
	}
	ctx, id, err := f.reqs.begin(ctx, reqPolls)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	polls, err := f.client.GetAllPolls(ctx, voter.StateID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reqs.finish(reqPolls, id) {
		return ErrStaleResponse
	}
	if !fetchesPolls(f.state) {
		f.log.Warn(ctx, "poll list dropped after state change", "state", f.state, "request_id", id)
		return ErrStaleResponse
	}
	if err != nil {
		f.lastErr = err
		return err
	}
	if len(polls) == 0 {
		f.polls, f.poll, f.party = nil, -1, 0
		f.state = Authenticated
		f.lastErr = ErrNoActivePoll
		return ErrNoActivePoll
	}

	f.polls, f.poll, f.party = polls, 0, 0
	f.state = PollLoaded
	f.lastErr = nil
	return nil
}

// fetchesPolls reports whether a poll list may be loaded into state s.
func fetchesPolls(s VotingState) bool {
	switch s {
	case Authenticated, PollLoaded, VoteRejected, AlreadyVoted:
		return true
	}
	return false
}

// SelectPoll switches to another fetched poll and clears the party choice.
func (f *VotingFlow) SelectPoll(id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != PollLoaded && f.state != VoteRejected {
		return f.wrongState("poll")
	}
	for i, p := range f.polls {
		if p.ID == id {
			f.poll, f.party = i, 0
			f.state = PollLoaded
			f.lastErr = nil
			return nil
		}
	}
	return fmt.Errorf("%w: poll %s", client.ErrNotFound, id)
}

// SelectParty chooses a party of the selected poll.
func (f *VotingFlow) SelectParty(id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != PollLoaded {
		return f.wrongState("select")
	}
	if _, ok := f.polls[f.poll].Party(id); !ok {
		return &validation.Error{Fields: []validation.FieldError{{
			Field:   "party_id",
			Message: fmt.Sprintf("party %s is not on this poll", id),
		}}}
	}
	f.party = id
	f.lastErr = nil
	return nil
}

// SubmitVote casts the chosen vote. It refuses when the voter has already
// voted, while a vote or poll list is pending, without a party choice and
// after the poll's end date. A voter without an id is named by aadhar,
// name and phone. has_voted is set only after the backend confirms.
//
// An error matching session.ErrNotPersisted means the vote was accepted
// but the has-voted flag is held in memory only.
func (f *VotingFlow) SubmitVote(ctx context.Context) error {
	voter, ok := f.session.Current()

	f.mu.Lock()
	if ok && voter.HasVoted {
		defer f.mu.Unlock()
		f.state = AlreadyVoted
		return ErrAlreadyVoted
	}
	if f.reqs.busy(reqVote) || f.reqs.busy(reqPolls) {
		f.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if !ok || f.state != PollLoaded {
		defer f.mu.Unlock()
		return f.wrongState("vote")
	}
	poll := f.polls[f.poll]
	if err := validation.Identifier("party_id", f.party); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	if poll.ClosedOn(f.now()) {
		err := &validation.Error{Fields: []validation.FieldError{{
			Field:   "poll_id",
			Message: fmt.Sprintf("poll %q ended on %s", poll.Name, poll.EndDate),
		}}}
		f.lastErr = err
		f.mu.Unlock()
		return err
	}
	ctx, id, err := f.reqs.begin(ctx, reqVote)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	req := models.CastVoteRequest{
		VoterID: voter.ID,
		PartyID: f.party,
		PollID:  poll.ID,
		StateID: voter.StateID,
	}
	if voter.ID == 0 {
		req.Aadhar, req.Name, req.PhoneNo = voter.Aadhar, voter.Name, voter.PhoneNo
	}
	if poll.State.ID != 0 {
		req.StateID = poll.State.ID
	}
	f.state = VoteSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	res, err := f.client.CastVote(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reqs.finish(reqVote, id) {
		f.log.Warn(ctx, "late cast-vote response dropped", "request_id", id, "error", err)
		return ErrStaleResponse
	}
	if err != nil {
		f.state = VoteRejected
		f.lastErr = err
		f.log.Info(ctx, "vote rejected", "poll_id", req.PollID, "request_id", id, "error", err)
		return err
	}

	at := f.now()
	f.receipt = &models.VoteReceipt{
		PollID:    req.PollID,
		PartyID:   req.PartyID,
		Message:   res.Message,
		RequestID: id,
		At:        at,
	}
	f.state = VoteConfirmed
	f.log.Info(ctx, "vote confirmed", "poll_id", req.PollID, "request_id", id)

	if err := f.session.MarkVoted(ctx, at); err != nil {
		return fmt.Errorf("vote recorded but not saved locally: %w", err)
	}
	return nil
}

// Retry returns from a rejected vote to the loaded poll.
func (f *VotingFlow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != VoteRejected {
		return f.wrongState("retry")
	}
	f.state = PollLoaded
	f.lastErr = nil
	return nil
}

// Logout clears the voter from the session and resets the flow. Responses
// to requests still pending are ignored.
func (f *VotingFlow) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs.reset()
	f.state = Unauthenticated
	f.aadhar, f.phone = "", ""
	f.polls, f.poll, f.party = nil, -1, 0
	f.receipt = nil
	f.lastErr = nil
	return f.session.Logout(ctx)
}

// Snapshot copies the flow state for rendering.
func (f *VotingFlow) Snapshot() VotingView {
	voter, hasVoter := f.session.Current()
	bc, hasBC := f.session.BlockchainInfo()

	f.mu.Lock()
	defer f.mu.Unlock()

	v := VotingView{
		State:         f.state,
		PhoneNo:       f.phone,
		Polls:         append([]models.Poll(nil), f.polls...),
		SelectedParty: f.party,
		Err:           f.lastErr,
	}
	if hasVoter {
		v.Voter = &voter
	}
	if hasBC {
		v.Blockchain = &bc
	}
	if f.poll >= 0 && f.poll < len(f.polls) {
		p := f.polls[f.poll]
		v.Poll = &p
	}
	if f.receipt != nil {
		r := *f.receipt
		v.Receipt = &r
	}
	return v
}

// wrongState reports action as unavailable. Callers hold mu.
func (f *VotingFlow) wrongState(action string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, action, f.state)
}
