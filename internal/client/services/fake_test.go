package services

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/stretchr/testify/require"
)

// fakeClient implements client.Client. Each method calls its func field
// when set and otherwise returns zero values.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int

	lastAadhar, lastPhone string
	lastOTP               string
	lastVote              models.CastVoteRequest
	lastForm              models.PollForm
	lastVoterReg          models.VoterRegistration
	lastPartyReg          models.PartyRegistration
	lastLogo              []byte
	lastToken             string

	loginVoter  func(ctx context.Context, aadhar, phone string) (*models.Voter, error)
	verifyOTP   func(ctx context.Context, phone, otp string) (*models.Voter, *models.BlockchainInfo, error)
	getAllPolls func(ctx context.Context, stateID models.ID) ([]models.Poll, error)
	castVote    func(ctx context.Context, req models.CastVoteRequest) (*models.CastVoteResult, error)
	adminLogin  func(ctx context.Context, username, password string) (*models.AdminSession, error)
	conductPoll func(ctx context.Context, form models.PollForm) (*models.Poll, error)
	tally       func(ctx context.Context) (*models.Tally, error)
	states      func(ctx context.Context) ([]models.State, error)
	parties     func(ctx context.Context) ([]models.Party, error)
	createParty func(ctx context.Context, reg models.PartyRegistration) (*models.Party, error)
	addVoter    func(ctx context.Context, reg models.VoterRegistration) (*models.Voter, error)
	reset       func(ctx context.Context) error
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeClient) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) LoginVoter(ctx context.Context, aadhar, phone string) (*models.Voter, error) {
	f.record("LoginVoter")
	f.mu.Lock()
	f.lastAadhar, f.lastPhone = aadhar, phone
	f.mu.Unlock()
	if f.loginVoter != nil {
		return f.loginVoter(ctx, aadhar, phone)
	}
	return &models.Voter{}, nil
}

func (f *fakeClient) VerifyOTP(ctx context.Context, phone, otp string) (*models.Voter, *models.BlockchainInfo, error) {
	f.record("VerifyOTP")
	f.mu.Lock()
	f.lastOTP = otp
	f.mu.Unlock()
	if f.verifyOTP != nil {
		return f.verifyOTP(ctx, phone, otp)
	}
	return &models.Voter{ID: 1}, &models.BlockchainInfo{}, nil
}

func (f *fakeClient) GetAllPolls(ctx context.Context, stateID models.ID) ([]models.Poll, error) {
	f.record("GetAllPolls")
	if f.getAllPolls != nil {
		return f.getAllPolls(ctx, stateID)
	}
	return nil, nil
}

func (f *fakeClient) CastVote(ctx context.Context, req models.CastVoteRequest) (*models.CastVoteResult, error) {
	f.record("CastVote")
	f.mu.Lock()
	f.lastVote = req
	f.mu.Unlock()
	if f.castVote != nil {
		return f.castVote(ctx, req)
	}
	return &models.CastVoteResult{Success: true}, nil
}

func (f *fakeClient) AdminLogin(ctx context.Context, username, password string) (*models.AdminSession, error) {
	f.record("AdminLogin")
	if f.adminLogin != nil {
		return f.adminLogin(ctx, username, password)
	}
	return &models.AdminSession{Token: "tkn", User: models.User{Username: username}}, nil
}

func (f *fakeClient) ConductPoll(ctx context.Context, form models.PollForm) (*models.Poll, error) {
	f.record("ConductPoll")
	f.mu.Lock()
	f.lastForm = form
	f.lastToken = client.AccessToken(ctx)
	f.mu.Unlock()
	if f.conductPoll != nil {
		return f.conductPoll(ctx, form)
	}
	return &models.Poll{ID: 1, Name: form.Name}, nil
}

func (f *fakeClient) PartyWiseVotingCount(ctx context.Context) (*models.Tally, error) {
	f.record("PartyWiseVotingCount")
	f.mu.Lock()
	f.lastToken = client.AccessToken(ctx)
	f.mu.Unlock()
	if f.tally != nil {
		return f.tally(ctx)
	}
	return &models.Tally{}, nil
}

func (f *fakeClient) GetAllStates(ctx context.Context) ([]models.State, error) {
	f.record("GetAllStates")
	if f.states != nil {
		return f.states(ctx)
	}
	return nil, nil
}

func (f *fakeClient) GetAllParties(ctx context.Context) ([]models.Party, error) {
	f.record("GetAllParties")
	if f.parties != nil {
		return f.parties(ctx)
	}
	return nil, nil
}

func (f *fakeClient) CreateParty(ctx context.Context, reg models.PartyRegistration, logo *client.Attachment) (*models.Party, error) {
	f.record("CreateParty")
	f.mu.Lock()
	f.lastPartyReg = reg
	f.lastLogo = nil
	if logo != nil {
		f.lastLogo, _ = io.ReadAll(logo.Body)
	}
	f.mu.Unlock()
	if f.createParty != nil {
		return f.createParty(ctx, reg)
	}
	return &models.Party{ID: 1, Name: reg.Name, StateID: reg.StateID}, nil
}

func (f *fakeClient) AddVoter(ctx context.Context, reg models.VoterRegistration) (*models.Voter, error) {
	f.record("AddVoter")
	f.mu.Lock()
	f.lastVoterReg = reg
	f.mu.Unlock()
	if f.addVoter != nil {
		return f.addVoter(ctx, reg)
	}
	return &models.Voter{ID: 1, Name: reg.Name}, nil
}

func (f *fakeClient) ResetAllPolls(ctx context.Context) error {
	f.record("ResetAllPolls")
	if f.reset != nil {
		return f.reset(ctx)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func setupStore(t *testing.T) (*session.Store, *sql.DB) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := session.New(db, nil)
	require.NoError(t, s.Hydrate(context.Background()))
	return s, db
}
