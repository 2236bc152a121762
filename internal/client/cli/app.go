package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/config"
	"github.com/dmitrijs2005/ballot/internal/client/services"
	"github.com/dmitrijs2005/ballot/internal/client/session"
	"github.com/dmitrijs2005/ballot/internal/logging"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	gateway client.Client
	session *session.Store
	voting  *services.VotingFlow
	admin   *services.AdminFlow
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp wires the session database, backend client and flow controllers.
// A session database that cannot be opened is reported and the app runs
// with a memory-only session.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFile)

	gateway, err := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout, logger)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		logger.Error(ctx, "session database unavailable, session will not be saved", "path", c.SessionDBPath, "error", err)
		db = nil
	}

	store := session.New(db, logger)
	if err := store.Hydrate(ctx); err != nil {
		logger.Warn(ctx, "starting logged out", "error", err)
	}

	return &App{
		config:  c,
		log:     logger,
		db:      db,
		gateway: gateway,
		session: store,
		voting:  services.NewVotingFlow(gateway, store, logger),
		admin:   services.NewAdminFlow(gateway, store, logger),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

// Run shows the restored session and serves commands until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	printlnFn("Welcome to the ballot client (type 'help' for commands)")
	if a.isVoter() || a.isAdmin() {
		_ = a.Status(ctx)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	ctx := context.Background()
	if err := a.gateway.Close(); err != nil {
		a.log.Warn(ctx, "closing backend client", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(ctx, "closing session database", "error", err)
		}
	}
}

func (a *App) isVoter() bool {
	_, ok := a.session.Current()
	return ok || a.voting.Snapshot().State == services.OtpPending
}

func (a *App) isAdmin() bool {
	_, ok := a.session.Admin()
	return ok
}

// getStatus is the prompt prefix: who is logged in and the voter step.
func (a *App) getStatus() string {
	s := ""
	if admin, ok := a.session.Admin(); ok {
		s = "admin " + admin.User.Username
	}
	v := a.voting.Snapshot()
	if v.State != services.Unauthenticated {
		if s != "" {
			s += ", "
		}
		if v.Voter != nil {
			s += v.Voter.Name + ": "
		}
		s += v.State.String()
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Status prints the voter and admin views.
func (a *App) Status(ctx context.Context) error {
	fmt.Fprint(a.out, RenderVoting(a.voting.Snapshot()))
	if a.isAdmin() {
		fmt.Fprint(a.out, RenderAdmin(a.admin.Snapshot()))
	}
	return nil
}

// warnOnly prints err when it only means the session was not saved and
// returns nil; any other error is returned unchanged.
func (a *App) warnOnly(err error) error {
	if err != nil && errors.Is(err, session.ErrNotPersisted) {
		fmt.Fprintln(a.out, "Warning:", describeError(err))
		return nil
	}
	return err
}
