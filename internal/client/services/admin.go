package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/client/validation"
	"github.com/dmitrijs2005/ballot/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ErrAdminRequired is returned by admin operations without a valid admin
// session.
var ErrAdminRequired = fmt.Errorf("%w: admin login required", client.ErrAuth)

const (
	reqAdminLogin requestKind = "login"
	reqOptions    requestKind = "form_options"
	reqConduct    requestKind = "conduct_poll"
	reqDashboard  requestKind = "party_wise_voting_count"
	reqAddVoter   requestKind = "add_voter"
	reqAddParty   requestKind = "create_party"
	reqReset      requestKind = "reset_all_polls"
)

// AdminView is a point-in-time copy of the admin flow for rendering.
type AdminView struct {
	Session  *models.AdminSession
	Draft    models.PollForm
	States   []models.State
	Parties  []models.Party
	Tally    *models.Tally
	LastPoll *models.Poll
	Err      error
}

// AdminFlow holds the admin's conduct-poll draft, form options and the
// last loaded tally.
type AdminFlow struct {
	client  client.Client
	session *session.Store
	log     logging.Logger
	reqs    *tracker

	mu       sync.Mutex
	draft    models.PollForm
	states   []models.State
	parties  []models.Party
	tally    *models.Tally
	lastPoll *models.Poll
	lastErr  error
}

func NewAdminFlow(c client.Client, s *session.Store, log logging.Logger) *AdminFlow {
	if log == nil {
		log = logging.Nop()
	}
	return &AdminFlow{
		client:  c,
		session: s,
		log:     log.With("component", "admin"),
		reqs:    newTracker(),
	}
}

// Login authenticates against the backend and stores the admin session.
func (a *AdminFlow) Login(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)
	verr := &validation.Error{}
	if username == "" {
		verr.Fields = append(verr.Fields, validation.FieldError{Field: "username", Message: "username is required"})
	}
	if len(password) == 0 {
		verr.Fields = append(verr.Fields, validation.FieldError{Field: "password", Message: "password is required"})
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	ctx, id, err := a.reqs.begin(ctx, reqAdminLogin)
	if err != nil {
		return err
	}
	s, err := a.client.AdminLogin(ctx, username, string(password))
	if !a.reqs.finish(reqAdminLogin, id) {
		return ErrStaleResponse
	}
	if err != nil {
		a.setErr(err)
		return err
	}

	a.log.Info(ctx, "admin logged in", "user", s.User.Username, "request_id", id)
	if err := a.session.AdminLogin(ctx, *s); err != nil {
		return fmt.Errorf("admin login not saved: %w", err)
	}
	return nil
}

// Logout ends the admin session and drops all admin state.
func (a *AdminFlow) Logout(ctx context.Context) error {
	a.reqs.reset()

	a.mu.Lock()
	a.draft = models.PollForm{}
	a.states, a.parties = nil, nil
	a.tally, a.lastPoll, a.lastErr = nil, nil, nil
	a.mu.Unlock()

	return a.session.AdminLogout(ctx)
}

// LoadFormOptions fetches states and parties for the conduct-poll form in
// parallel.
func (a *AdminFlow) LoadFormOptions(ctx context.Context) error {
	ctx, id, err := a.start(ctx, reqOptions)
	if err != nil {
		return err
	}

	var (
		states  []models.State
		parties []models.Party
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		states, err = a.client.GetAllStates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		parties, err = a.client.GetAllParties(gctx)
		return err
	})
	err = g.Wait()

	if !a.reqs.finish(reqOptions, id) {
		return ErrStaleResponse
	}
	if err != nil {
		return a.fail(err)
	}

	a.mu.Lock()
	a.states, a.parties, a.lastErr = states, parties, nil
	a.mu.Unlock()
	return nil
}

// PartiesForState returns the loaded parties owned by stateID.
func (a *AdminFlow) PartiesForState(stateID models.ID) []models.Party {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []models.Party
	for _, p := range a.parties {
		if p.StateID == stateID {
			out = append(out, p)
		}
	}
	return out
}

// ConductPoll validates form and creates the poll. The form is kept as the
// draft until the backend accepts it; a valid form that the backend
// rejects stays available for correction.
func (a *AdminFlow) ConductPoll(ctx context.Context, form models.PollForm) (*models.Poll, error) {
	a.mu.Lock()
	a.draft = form
	a.mu.Unlock()

	if err := validation.PollForm(form); err != nil {
		a.setErr(err)
		return nil, err
	}

	ctx, id, err := a.start(ctx, reqConduct)
	if err != nil {
		return nil, err
	}
	poll, err := a.client.ConductPoll(ctx, form)
	if !a.reqs.finish(reqConduct, id) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, a.fail(err)
	}

	a.log.Info(ctx, "poll conducted", "poll_id", poll.ID, "request_id", id)
	a.mu.Lock()
	a.draft = models.PollForm{}
	a.lastPoll = poll
	a.lastErr = nil
	a.mu.Unlock()
	return poll, nil
}

// Draft returns the conduct-poll form as last submitted.
func (a *AdminFlow) Draft() models.PollForm {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draft
}

// LoadDashboard fetches the party-wise tally. Figures are kept as sent.
func (a *AdminFlow) LoadDashboard(ctx context.Context) (*models.Tally, error) {
	ctx, id, err := a.start(ctx, reqDashboard)
	if err != nil {
		return nil, err
	}
	tally, err := a.client.PartyWiseVotingCount(ctx)
	if !a.reqs.finish(reqDashboard, id) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, a.fail(err)
	}

	a.mu.Lock()
	a.tally, a.lastErr = tally, nil
	a.mu.Unlock()
	return tally, nil
}

// RegisterVoter validates and submits the add-voter form.
func (a *AdminFlow) RegisterVoter(ctx context.Context, reg models.VoterRegistration) (*models.Voter, error) {
	reg, err := validation.VoterRegistration(reg)
	if err != nil {
		a.setErr(err)
		return nil, err
	}

	ctx, id, err := a.start(ctx, reqAddVoter)
	if err != nil {
		return nil, err
	}
	voter, err := a.client.AddVoter(ctx, reg)
	if !a.reqs.finish(reqAddVoter, id) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, a.fail(err)
	}
	a.log.Info(ctx, "voter registered", "voter_id", voter.ID, "request_id", id)
	return voter, nil
}

// CreateParty validates and submits the create-party form, uploading the
// file at reg.LogoPath when set.
func (a *AdminFlow) CreateParty(ctx context.Context, reg models.PartyRegistration) (*models.Party, error) {
	reg, err := validation.PartyRegistration(reg)
	if err != nil {
		a.setErr(err)
		return nil, err
	}

	var logo *client.Attachment
	if reg.LogoPath != "" {
		f, err := os.Open(reg.LogoPath)
		if err != nil {
			verr := &validation.Error{Fields: []validation.FieldError{{Field: "logo", Message: fmt.Sprintf("logo: %v", err)}}}
			a.setErr(verr)
			return nil, verr
		}
		defer f.Close()
		logo = &client.Attachment{FileName: filepath.Base(reg.LogoPath), Body: f}
	}

	ctx, id, err := a.start(ctx, reqAddParty)
	if err != nil {
		return nil, err
	}
	party, err := a.client.CreateParty(ctx, reg, logo)
	if !a.reqs.finish(reqAddParty, id) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, a.fail(err)
	}

	a.log.Info(ctx, "party created", "party_id", party.ID, "request_id", id)
	a.mu.Lock()
	if a.parties != nil {
		a.parties = append(a.parties, *party)
	}
	a.mu.Unlock()
	return party, nil
}

// ResetAllPolls asks the backend to delete every poll.
func (a *AdminFlow) ResetAllPolls(ctx context.Context) error {
	ctx, id, err := a.start(ctx, reqReset)
	if err != nil {
		return err
	}
	err = a.client.ResetAllPolls(ctx)
	if !a.reqs.finish(reqReset, id) {
		return ErrStaleResponse
	}
	if err != nil {
		return a.fail(err)
	}

	a.log.Warn(ctx, "all polls reset", "request_id", id)
	a.mu.Lock()
	a.tally, a.lastPoll, a.lastErr = nil, nil, nil
	a.mu.Unlock()
	return nil
}

func (a *AdminFlow) Snapshot() AdminView {
	s, ok := a.session.Admin()

	a.mu.Lock()
	defer a.mu.Unlock()

	v := AdminView{
		Draft:   a.draft,
		States:  append([]models.State(nil), a.states...),
		Parties: append([]models.Party(nil), a.parties...),
		Err:     a.lastErr,
	}
	if ok {
		v.Session = &s
	}
	if a.tally != nil {
		t := *a.tally
		v.Tally = &t
	}
	if a.lastPoll != nil {
		p := *a.lastPoll
		v.LastPoll = &p
	}
	return v
}

// start checks the admin session and reserves kind. The returned context
// carries the access token and request id.
func (a *AdminFlow) start(ctx context.Context, kind requestKind) (context.Context, string, error) {
	s, ok := a.session.Admin()
	if !ok {
		return ctx, "", ErrAdminRequired
	}
	return a.reqs.begin(client.WithAccessToken(ctx, s.Token), kind)
}

// fail records err. A rejected token ends the admin session.
func (a *AdminFlow) fail(err error) error {
	a.setErr(err)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && errors.Is(err, client.ErrAuth) {
		if _, ok := a.session.Admin(); ok {
			a.log.Warn(context.Background(), "admin token rejected, ending session", "status", apiErr.Status)
			if lerr := a.session.AdminLogout(context.Background()); lerr != nil {
				a.log.Warn(context.Background(), "admin logout not saved", "error", lerr)
			}
		}
	}
	return err
}

func (a *AdminFlow) setErr(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}
