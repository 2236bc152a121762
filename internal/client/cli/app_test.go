package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/config"
	"github.com/dmitrijs2005/ballot/internal/client/services"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a minimal election backend: one voter, one poll, an admin.
type backend struct {
	mu       sync.Mutex
	bodies   map[string]map[string]any
	hasVoted bool
	votes    int
}

func (b *backend) record(r *http.Request) {
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bodies == nil {
		b.bodies = map[string]map[string]any{}
	}
	b.bodies[r.URL.Path] = body
}

func (b *backend) body(path string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login_voter", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		reply(w, http.StatusOK, `{"message":"OTP sent"}`)
	})
	mux.HandleFunc("POST /verify_otp", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if b.body(r.URL.Path)["otp"] != "123456" {
			reply(w, http.StatusBadRequest, `{"message":"Invalid OTP"}`)
			return
		}
		b.mu.Lock()
		voted := b.hasVoted
		b.mu.Unlock()
		reply(w, http.StatusOK, `{"voter":{"id":1,"name":"Asha","aadhar":"1234 5678 9012","phone_no":"9876543210","state_id":4,"has_voted":`+
			map[bool]string{true: "true", false: "false"}[voted]+`},
			"blockchainInfo":{"blockHash":"abc","previousHash":"000","verificationStatus":"verified"}}`)
	})
	mux.HandleFunc("GET /get_all_polls/{state}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"success":true,"polls":[{"poll_id":9,"name":"General","start_date":"2026-10-01","end_date":"2099-12-31",
			"state":{"id":4,"name":"Kerala"},"parties":[{"party_id":1,"name":"One"},{"party_id":2,"name":"Two"}]}]}`)
	})
	mux.HandleFunc("POST /cast_vote", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.hasVoted {
			reply(w, http.StatusOK, `{"success":false,"message":"You have already voted"}`)
			return
		}
		b.hasVoted = true
		b.votes++
		reply(w, http.StatusOK, `{"success":true,"message":"Vote cast successfully"}`)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if b.body(r.URL.Path)["password"] != "secret" {
			reply(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		reply(w, http.StatusOK, `{"token":"tkn","user":{"userId":1,"username":"root","role":"admin"}}`)
	})
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tkn" {
				reply(w, http.StatusUnauthorized, `{"message":"Unauthorized"}`)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("GET /party-wise-voting-count", admin(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"totalVoters":10,"totalVotesCast":1,"votingPercentage":"10.00",
			"statistics":[{"id":2,"name":"Two","state_name":"Kerala","votes":1,"percentage":"100.00"}]}`)
	}))
	mux.HandleFunc("GET /get_all_states", admin(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"states":[{"id":4,"name":"Kerala","abbreviation":"KL"}]}`)
	}))
	mux.HandleFunc("GET /get_all_parties", admin(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"parties":[{"id":1,"name":"One","state_id":4,"state_name":"Kerala"},{"id":2,"name":"Two","state_id":4}]}`)
	}))
	mux.HandleFunc("POST /conduct_poll", admin(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		reply(w, http.StatusCreated, `{"message":"Poll created","poll":{"poll_id":12,"name":"Bypoll"}}`)
	}))
	mux.HandleFunc("DELETE /reset_all_polls", admin(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hasVoted = false
		b.mu.Unlock()
		reply(w, http.StatusOK, `{"message":"reset"}`)
	}))
	return mux
}

// newTestApp builds an App against be with input as the user's keystrokes.
func newTestApp(t *testing.T, be *backend, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ts := httptest.NewServer(be.handler())
	t.Cleanup(ts.Close)

	gateway, err := client.NewHTTPClient(ts.URL, 2*time.Second, nil)
	require.NoError(t, err)

	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := session.New(db, nil)
	require.NoError(t, store.Hydrate(context.Background()))

	var out bytes.Buffer
	return &App{
		config:  &config.Config{},
		log:     logging.Nop(),
		gateway: gateway,
		session: store,
		voting:  services.NewVotingFlow(gateway, store, nil),
		admin:   services.NewAdminFlow(gateway, store, nil),
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     &out,
	}, &out
}

func TestApp_VoterSession(t *testing.T) {
	capturePrint(t)
	be := &backend{}
	app, out := newTestApp(t, be, strings.Join([]string{
		"login",
		"123456789012",
		"98765 43210",
		"otp 123456",
		"polls",
		"select 2",
		"vote",
		"vote",
		"status",
		"exit",
	}, "\n"))

	runREPL(context.Background(), app, app.getStatus, app.reader)

	text := out.String()
	assert.Equal(t, map[string]any{"aadhar": "1234 5678 9012", "phone_no": "9876543210"}, be.body("/login_voter"))
	assert.Contains(t, text, "An OTP was sent to ******3210")
	assert.Contains(t, text, "Voter: Asha (Aadhaar 1234 5678 9012)")
	assert.Contains(t, text, "Poll 9: General")
	assert.Contains(t, text, "Selected Two.")
	assert.Contains(t, text, "Vote cast successfully")
	assert.Contains(t, text, "You have already voted")

	assert.Equal(t, 1, be.votes, "second vote never reaches the backend")
	assert.Equal(t, float64(2), be.body("/cast_vote")["party_id"])
	assert.Equal(t, float64(9), be.body("/cast_vote")["poll_id"])

	voter, ok := app.session.Current()
	require.True(t, ok)
	assert.True(t, voter.HasVoted)
	assert.Equal(t, "(Asha: already voted)", app.getStatus())
}

func TestApp_VoterErrorsAreShown(t *testing.T) {
	out := capturePrint(t)
	be := &backend{}
	app, _ := newTestApp(t, be, strings.Join([]string{
		"login",
		"1234",
		"9876543210",
		"login",
		"1234 5678 9012",
		"9876543210",
		"otp 000000",
		"otp 12",
		"vote",
	}, "\n"))

	runREPL(context.Background(), app, app.getStatus, app.reader)

	text := strings.Join(*out, "\n")
	assert.Contains(t, text, "Error: aadhar must be 12 digits")
	assert.Contains(t, text, "Error: Invalid OTP")
	assert.Contains(t, text, "Error: otp must be 6 digits")
	assert.Contains(t, text, "Error: action not available now: vote while otp pending")
	assert.Equal(t, services.OtpPending, app.voting.Snapshot().State)
}

func TestApp_AdminSession(t *testing.T) {
	capturePrint(t)
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("secret"), nil }
	t.Cleanup(func() { readPassword = old })

	be := &backend{}
	app, out := newTestApp(t, be, strings.Join([]string{
		"admin-login",
		"root",
		"conduct",
		"Bypoll",
		"By-election",
		"2026-11-01",
		"2026-11-02",
		"4",
		"1, 2",
		"",
		"parties 4",
		"reset-polls",
		"no",
		"admin-logout",
		"dashboard",
	}, "\n"))

	runREPL(context.Background(), app, app.getStatus, app.reader)

	text := out.String()
	assert.Contains(t, text, "Admin: root (admin)")
	created := strings.Index(text, "Poll 12 created: Bypoll")
	require.GreaterOrEqual(t, created, 0)
	dashboard := text[created:]
	assert.Contains(t, dashboard, "Voting percentage: 10.00", "dashboard follows a created poll")
	assert.Contains(t, dashboard, "100.00")
	assert.Contains(t, text, "Cancelled.")
	assert.Contains(t, text, "Admin logged out.")

	assert.Equal(t, map[string]any{
		"name":        "Bypoll",
		"description": "By-election",
		"start_date":  "2026-11-01",
		"end_date":    "2026-11-02",
		"state_parties": []any{
			map[string]any{"state_id": float64(4), "party_list": []any{float64(1), float64(2)}},
		},
	}, be.body("/conduct_poll"))

	_, ok := app.session.Admin()
	assert.False(t, ok)
}

func TestApp_ConductValidationKeepsDraft(t *testing.T) {
	out := capturePrint(t)
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("secret"), nil }
	t.Cleanup(func() { readPassword = old })

	be := &backend{}
	app, stdout := newTestApp(t, be, strings.Join([]string{
		"admin-login",
		"root",
		"conduct",
		"Bypoll",
		"By-election",
		"2026-11-05",
		"2026-11-01",
		"4",
		"1",
		"",
		"status",
	}, "\n"))

	runREPL(context.Background(), app, app.getStatus, app.reader)

	assert.Contains(t, strings.Join(*out, "\n"), "Error: end_date must not be earlier than start_date")
	assert.Nil(t, be.body("/conduct_poll"), "invalid form never reaches the backend")
	assert.Equal(t, "Bypoll", app.admin.Draft().Name)
	assert.Contains(t, stdout.String(), "Unsent poll draft: Bypoll")
}

func TestApp_Status(t *testing.T) {
	app, out := newTestApp(t, &backend{}, "")

	assert.Equal(t, "", app.getStatus())
	require.NoError(t, app.Status(context.Background()))
	assert.Contains(t, out.String(), "Not logged in")
	assert.False(t, app.isVoter())
	assert.False(t, app.isAdmin())
}
