package services

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/client/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPollForm() models.PollForm {
	return models.PollForm{
		Name:        "General",
		Description: "Assembly election",
		StartDate:   "2026-10-01",
		EndDate:     "2026-10-31",
		StateParties: []models.StateParties{
			{StateID: 4, PartyList: []models.ID{1, 2}},
		},
	}
}

func newAdmin(t *testing.T, fc *fakeClient) (*AdminFlow, *session.Store) {
	t.Helper()
	store, _ := setupStore(t)
	return NewAdminFlow(fc, store, nil), store
}

func loggedInAdmin(t *testing.T, fc *fakeClient) (*AdminFlow, *session.Store) {
	t.Helper()
	a, store := newAdmin(t, fc)
	require.NoError(t, a.Login(context.Background(), "root", []byte("secret")))
	return a, store
}

func TestAdminFlow_Login(t *testing.T) {
	fc := &fakeClient{}
	a, store := newAdmin(t, fc)

	require.NoError(t, a.Login(context.Background(), " root ", []byte("secret")))

	s, ok := store.Admin()
	require.True(t, ok)
	assert.Equal(t, "tkn", s.Token)
	assert.Equal(t, "root", s.User.Username)
	require.NotNil(t, a.Snapshot().Session)
}

func TestAdminFlow_LoginValidation(t *testing.T) {
	fc := &fakeClient{}
	a, _ := newAdmin(t, fc)

	err := a.Login(context.Background(), "", nil)
	require.ErrorIs(t, err, client.ErrValidation)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("username"))
	assert.NotEmpty(t, verr.Field("password"))
	assert.Zero(t, fc.count("AdminLogin"))
}

func TestAdminFlow_LoginRejected(t *testing.T) {
	fc := &fakeClient{adminLogin: func(ctx context.Context, username, password string) (*models.AdminSession, error) {
		return nil, &client.APIError{Kind: client.ErrAuth, Status: 401, Message: "Invalid credentials"}
	}}
	a, store := newAdmin(t, fc)

	err := a.Login(context.Background(), "root", []byte("bad"))
	require.ErrorIs(t, err, client.ErrAuth)
	assert.Equal(t, "Invalid credentials", err.Error())
	_, ok := store.Admin()
	assert.False(t, ok)
}

func TestAdminFlow_RequiresSession(t *testing.T) {
	fc := &fakeClient{}
	a, _ := newAdmin(t, fc)
	ctx := context.Background()

	_, err := a.LoadDashboard(ctx)
	require.ErrorIs(t, err, ErrAdminRequired)
	require.ErrorIs(t, err, client.ErrAuth)

	_, err = a.ConductPoll(ctx, validPollForm())
	require.ErrorIs(t, err, ErrAdminRequired)
	require.ErrorIs(t, a.ResetAllPolls(ctx), ErrAdminRequired)
	require.ErrorIs(t, a.LoadFormOptions(ctx), ErrAdminRequired)

	assert.Zero(t, fc.count("PartyWiseVotingCount"))
	assert.Zero(t, fc.count("ConductPoll"))
}

func TestAdminFlow_ConductPoll(t *testing.T) {
	fc := &fakeClient{}
	a, _ := loggedInAdmin(t, fc)

	poll, err := a.ConductPoll(context.Background(), validPollForm())
	require.NoError(t, err)

	assert.Equal(t, "General", poll.Name)
	assert.Equal(t, validPollForm(), fc.lastForm)
	assert.Equal(t, "tkn", fc.lastToken)
	assert.Equal(t, models.PollForm{}, a.Draft(), "draft resets on success")
	assert.Equal(t, poll, a.Snapshot().LastPoll)
}

func TestAdminFlow_ConductPollValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.PollForm)
		field string
	}{
		{"short name", func(f *models.PollForm) { f.Name = "G" }, "name"},
		{"bad start date", func(f *models.PollForm) { f.StartDate = "01/10/2026" }, "start_date"},
		{"impossible end date", func(f *models.PollForm) { f.EndDate = "2026-02-30" }, "end_date"},
		{"end before start", func(f *models.PollForm) { f.EndDate = "2026-09-30" }, "end_date"},
		{"no state groups", func(f *models.PollForm) { f.StateParties = nil }, "state_parties"},
		{"group without parties", func(f *models.PollForm) { f.StateParties[0].PartyList = nil }, "state_parties[0].party_list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{}
			a, _ := loggedInAdmin(t, fc)

			form := validPollForm()
			tt.edit(&form)

			_, err := a.ConductPoll(context.Background(), form)
			require.ErrorIs(t, err, client.ErrValidation)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Field(tt.field), verr.Error())

			assert.Zero(t, fc.count("ConductPoll"), "invalid form never reaches the backend")
			assert.Equal(t, form, a.Draft(), "draft is preserved")
		})
	}
}

func TestAdminFlow_ConductPollRejectedKeepsDraft(t *testing.T) {
	fc := &fakeClient{conductPoll: func(ctx context.Context, form models.PollForm) (*models.Poll, error) {
		return nil, &client.APIError{Kind: client.ErrValidation, Status: 400, Message: "Party 2 does not belong to state 4"}
	}}
	a, _ := loggedInAdmin(t, fc)

	_, err := a.ConductPoll(context.Background(), validPollForm())
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, validPollForm(), a.Draft())
	assert.Equal(t, "Party 2 does not belong to state 4", a.Snapshot().Err.Error())
}

func TestAdminFlow_RejectedTokenEndsSession(t *testing.T) {
	fc := &fakeClient{tally: func(ctx context.Context) (*models.Tally, error) {
		return nil, &client.APIError{Kind: client.ErrAuth, Status: 401, Message: "Token expired"}
	}}
	a, store := loggedInAdmin(t, fc)

	_, err := a.LoadDashboard(context.Background())
	require.ErrorIs(t, err, client.ErrAuth)

	_, ok := store.Admin()
	assert.False(t, ok)
}

func TestAdminFlow_LoadDashboard(t *testing.T) {
	want := &models.Tally{
		TotalVoters:      "100",
		TotalVotesCast:   "40",
		VotingPercentage: "40.00",
		Statistics: []models.PartyStatistic{
			{ID: 1, Name: "One", StateName: "Kerala", Votes: "25", Percentage: "62.50"},
		},
	}
	fc := &fakeClient{tally: func(ctx context.Context) (*models.Tally, error) { return want, nil }}
	a, _ := loggedInAdmin(t, fc)

	got, err := a.LoadDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "tkn", fc.lastToken)
	assert.Equal(t, *want, *a.Snapshot().Tally)
}

func TestAdminFlow_DashboardInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fc := &fakeClient{tally: func(ctx context.Context) (*models.Tally, error) {
		close(started)
		<-release
		return &models.Tally{}, nil
	}}
	a, _ := loggedInAdmin(t, fc)

	done := make(chan error, 1)
	go func() {
		_, err := a.LoadDashboard(context.Background())
		done <- err
	}()
	<-started

	_, err := a.LoadDashboard(context.Background())
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestAdminFlow_LoadFormOptions(t *testing.T) {
	var inFlight, peak atomic.Int32
	enter := func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}
	fc := &fakeClient{
		states: func(ctx context.Context) ([]models.State, error) {
			enter()
			return []models.State{{ID: 4, Name: "Kerala"}, {ID: 5, Name: "Goa"}}, nil
		},
		parties: func(ctx context.Context) ([]models.Party, error) {
			enter()
			return []models.Party{
				{ID: 1, Name: "One", StateID: 4},
				{ID: 2, Name: "Two", StateID: 4},
				{ID: 3, Name: "Three", StateID: 5},
			}, nil
		},
	}
	a, _ := loggedInAdmin(t, fc)

	require.NoError(t, a.LoadFormOptions(context.Background()))
	assert.Equal(t, int32(2), peak.Load(), "states and parties load together")

	view := a.Snapshot()
	assert.Len(t, view.States, 2)
	assert.Len(t, view.Parties, 3)

	kerala := a.PartiesForState(4)
	require.Len(t, kerala, 2)
	assert.Equal(t, "One", kerala[0].Name)
	assert.Empty(t, a.PartiesForState(99))
}

func TestAdminFlow_LoadFormOptionsFailure(t *testing.T) {
	fc := &fakeClient{
		states: func(ctx context.Context) ([]models.State, error) {
			return nil, &client.APIError{Kind: client.ErrServer, Status: 500, Message: "db down"}
		},
	}
	a, _ := loggedInAdmin(t, fc)

	err := a.LoadFormOptions(context.Background())
	require.ErrorIs(t, err, client.ErrServer)
	assert.Empty(t, a.Snapshot().States)
}

func TestAdminFlow_RegisterVoter(t *testing.T) {
	fc := &fakeClient{}
	a, _ := loggedInAdmin(t, fc)

	voter, err := a.RegisterVoter(context.Background(), models.VoterRegistration{
		Name: " Asha ", Aadhar: "123456789012", PhoneNo: "98765-43210", StateID: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", voter.Name)
	assert.Equal(t, models.VoterRegistration{
		Name: "Asha", Aadhar: "1234 5678 9012", PhoneNo: "9876543210", StateID: 4,
	}, fc.lastVoterReg)

	_, err = a.RegisterVoter(context.Background(), models.VoterRegistration{Name: "A", Aadhar: "12", PhoneNo: "1"})
	require.ErrorIs(t, err, client.ErrValidation)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	for _, f := range []string{"name", "aadhar", "phone_no", "state_id"} {
		assert.NotEmpty(t, verr.Field(f), f)
	}
	assert.Equal(t, 1, fc.count("AddVoter"))
}

func TestAdminFlow_CreateParty(t *testing.T) {
	fc := &fakeClient{}
	a, _ := loggedInAdmin(t, fc)

	logo := filepath.Join(t.TempDir(), "green.png")
	require.NoError(t, os.WriteFile(logo, []byte("PNGDATA"), 0o600))

	party, err := a.CreateParty(context.Background(), models.PartyRegistration{
		Name: "Green", Abbreviation: " GRN ", StateID: 4, LogoPath: logo,
	})
	require.NoError(t, err)
	assert.Equal(t, "Green", party.Name)
	assert.Equal(t, "GRN", fc.lastPartyReg.Abbreviation)
	assert.Equal(t, "PNGDATA", string(fc.lastLogo))
}

func TestAdminFlow_CreatePartyErrors(t *testing.T) {
	fc := &fakeClient{}
	a, _ := loggedInAdmin(t, fc)
	ctx := context.Background()

	_, err := a.CreateParty(ctx, models.PartyRegistration{Name: "G"})
	require.ErrorIs(t, err, client.ErrValidation)

	_, err = a.CreateParty(ctx, models.PartyRegistration{Name: "Green", StateID: 4, LogoPath: filepath.Join(t.TempDir(), "missing.png")})
	require.ErrorIs(t, err, client.ErrValidation)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("logo"))

	assert.Zero(t, fc.count("CreateParty"))

	_, err = a.CreateParty(ctx, models.PartyRegistration{Name: "Green", StateID: 4})
	require.NoError(t, err)
	assert.Nil(t, fc.lastLogo)
}

func TestAdminFlow_CreatePartyExtendsLoadedOptions(t *testing.T) {
	fc := &fakeClient{
		states:  func(ctx context.Context) ([]models.State, error) { return []models.State{{ID: 4}}, nil },
		parties: func(ctx context.Context) ([]models.Party, error) { return []models.Party{{ID: 1, StateID: 4}}, nil },
	}
	a, _ := loggedInAdmin(t, fc)
	require.NoError(t, a.LoadFormOptions(context.Background()))

	_, err := a.CreateParty(context.Background(), models.PartyRegistration{Name: "Green", StateID: 4})
	require.NoError(t, err)
	assert.Len(t, a.PartiesForState(4), 2)
}

func TestAdminFlow_ResetAllPolls(t *testing.T) {
	fc := &fakeClient{}
	a, _ := loggedInAdmin(t, fc)
	_, err := a.ConductPoll(context.Background(), validPollForm())
	require.NoError(t, err)

	require.NoError(t, a.ResetAllPolls(context.Background()))
	assert.Equal(t, 1, fc.count("ResetAllPolls"))
	assert.Nil(t, a.Snapshot().LastPoll)
}

func TestAdminFlow_Logout(t *testing.T) {
	fc := &fakeClient{}
	a, store := loggedInAdmin(t, fc)
	form := validPollForm()
	form.Name = "G"
	_, _ = a.ConductPoll(context.Background(), form)

	require.NoError(t, a.Logout(context.Background()))

	_, ok := store.Admin()
	assert.False(t, ok)
	view := a.Snapshot()
	assert.Nil(t, view.Session)
	assert.Equal(t, models.PollForm{}, view.Draft)
	assert.Nil(t, view.Err)
}
