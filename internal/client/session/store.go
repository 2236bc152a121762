// Package session keeps the client's view of who is signed in: the voter
// (with blockchain info and the has-voted flag) and the admin session.
//
// State lives in memory and is mirrored to the local metadata table under
// fixed keys so it survives restarts. A Store is safe for concurrent use;
// writes are serialized, reads run in parallel.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ballot/internal/dbx"
	"github.com/dmitrijs2005/ballot/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Persisted keys.
const (
	KeyVoter          = "voter"
	KeyBlockchainInfo = "blockchainInfo"
	KeyVoterLoggedIn  = "isVoterLoggedIn"
	KeyAdmin          = "isAdmin"
	KeyAdminSession   = "adminSession"
)

var voterKeys = []string{KeyVoter, KeyBlockchainInfo, KeyVoterLoggedIn}
var adminKeys = []string{KeyAdmin, KeyAdminSession}

var (
	// ErrNotPersisted is returned when the in-memory state was updated but
	// could not be written to disk. The change holds for this process only.
	ErrNotPersisted = errors.New("session not persisted")
	// ErrNoVoter is returned by voter operations while nobody is logged in.
	ErrNoVoter = errors.New("no voter logged in")
)

var flagTrue = []byte("true")

type Store struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	mu         sync.RWMutex
	voter      *models.Voter
	blockchain *models.BlockchainInfo
	admin      *models.AdminSession
}

// New returns an empty store. A nil db gives a memory-only store whose
// writes all report ErrNotPersisted.
func New(db *sql.DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{db: db, log: log.With("component", "session"), now: time.Now}
}

// Hydrate loads the persisted session. Unreadable entries are dropped and
// treated as logged out, as is an admin session whose token has expired.
// An error means the database itself could not be read; the store is then
// logged out.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voter, s.blockchain, s.admin = nil, nil, nil
	if s.db == nil {
		return nil
	}

	values, err := metadata.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		s.log.Warn(ctx, "session not loaded", "error", err)
		return fmt.Errorf("load session: %w", err)
	}

	var stale []string

	if string(values[KeyVoterLoggedIn]) == string(flagTrue) {
		voter, bc, err := decodeVoter(values)
		if err != nil {
			s.log.Warn(ctx, "discarding unreadable voter session", "error", err)
			stale = append(stale, voterKeys...)
		} else {
			s.voter, s.blockchain = voter, bc
		}
	} else if hasAny(values, voterKeys) {
		stale = append(stale, voterKeys...)
	}

	if string(values[KeyAdmin]) == string(flagTrue) {
		admin, err := decodeAdmin(values[KeyAdminSession])
		switch {
		case err != nil:
			s.log.Warn(ctx, "discarding unreadable admin session", "error", err)
			stale = append(stale, adminKeys...)
		case admin.Expired(s.now()):
			s.log.Info(ctx, "admin session expired", "user", admin.User.Username)
			stale = append(stale, adminKeys...)
		default:
			s.admin = admin
		}
	} else if hasAny(values, adminKeys) {
		stale = append(stale, adminKeys...)
	}

	if len(stale) > 0 {
		if err := s.persist(ctx, nil, stale...); err != nil {
			s.log.Warn(ctx, "stale session keys not removed", "keys", stale, "error", err)
		}
	}
	return nil
}

// Login makes voter the current voter.
func (s *Store) Login(ctx context.Context, voter models.Voter, bc models.BlockchainInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voter, s.blockchain = &voter, &bc
	return s.saveVoter(ctx)
}

// Logout forgets the voter. The admin session, if any, is kept.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voter, s.blockchain = nil, nil
	return s.persist(ctx, nil, voterKeys...)
}

// Current returns a copy of the logged-in voter.
func (s *Store) Current() (models.Voter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.voter == nil {
		return models.Voter{}, false
	}
	return *s.voter, true
}

func (s *Store) BlockchainInfo() (models.BlockchainInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blockchain == nil {
		return models.BlockchainInfo{}, false
	}
	return *s.blockchain, true
}

// MarkVoted records that the current voter's vote was accepted at at.
func (s *Store) MarkVoted(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voter == nil {
		return ErrNoVoter
	}
	v := *s.voter
	v.HasVoted = true
	v.VotedAt = &models.Timestamp{Time: at}
	s.voter = &v
	return s.saveVoter(ctx)
}

// AdminLogin stores a server-issued admin session. When the backend sent no
// explicit expiry, the token's exp claim is used if it carries one.
func (s *Store) AdminLogin(ctx context.Context, session models.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ExpiresAt == nil {
		session.ExpiresAt = TokenExpiry(session.Token)
	}
	s.admin = &session

	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode admin session: %w", err)
	}
	return s.persist(ctx, map[string][]byte{KeyAdmin: flagTrue, KeyAdminSession: b})
}

func (s *Store) AdminLogout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admin = nil
	return s.persist(ctx, nil, adminKeys...)
}

// Admin returns the admin session unless there is none or it has expired.
func (s *Store) Admin() (models.AdminSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.admin == nil || s.admin.Expired(s.now()) {
		return models.AdminSession{}, false
	}
	return *s.admin, true
}

// Clear drops everything, in memory and on disk.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voter, s.blockchain, s.admin = nil, nil, nil
	if s.db == nil {
		return ErrNotPersisted
	}
	if err := metadata.NewSQLiteRepository(s.db).Clear(ctx); err != nil {
		s.log.Error(ctx, "session not cleared on disk", "error", err)
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// saveVoter writes the voter keys. Callers hold mu.
func (s *Store) saveVoter(ctx context.Context) error {
	voter, err := json.Marshal(s.voter)
	if err != nil {
		return fmt.Errorf("encode voter: %w", err)
	}
	bc, err := json.Marshal(s.blockchain)
	if err != nil {
		return fmt.Errorf("encode blockchain info: %w", err)
	}
	return s.persist(ctx, map[string][]byte{
		KeyVoter:          voter,
		KeyBlockchainInfo: bc,
		KeyVoterLoggedIn:  flagTrue,
	})
}

// persist deletes del and writes set in one transaction. Callers hold mu.
func (s *Store) persist(ctx context.Context, set map[string][]byte, del ...string) error {
	if s.db == nil {
		return ErrNotPersisted
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, del...); err != nil {
			return err
		}
		for _, k := range slices.Sorted(maps.Keys(set)) {
			if err := repo.Set(ctx, k, set[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "session change kept in memory only", "error", err)
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

func decodeVoter(values map[string][]byte) (*models.Voter, *models.BlockchainInfo, error) {
	raw, ok := values[KeyVoter]
	if !ok {
		return nil, nil, errors.New("voter missing")
	}
	var voter *models.Voter
	if err := json.Unmarshal(raw, &voter); err != nil {
		return nil, nil, fmt.Errorf("voter: %w", err)
	}
	if voter == nil || !voter.Identified() {
		return nil, nil, errors.New("voter has no identity")
	}

	bc := &models.BlockchainInfo{}
	if raw, ok := values[KeyBlockchainInfo]; ok {
		if err := json.Unmarshal(raw, bc); err != nil {
			return nil, nil, fmt.Errorf("blockchain info: %w", err)
		}
	}
	return voter, bc, nil
}

func decodeAdmin(raw []byte) (*models.AdminSession, error) {
	if raw == nil {
		return nil, errors.New("admin session missing")
	}
	var session models.AdminSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("admin session: %w", err)
	}
	if session.Token == "" {
		return nil, errors.New("admin session has no token")
	}
	return &session, nil
}

func hasAny(values map[string][]byte, keys []string) bool {
	for _, k := range keys {
		if _, ok := values[k]; ok {
			return true
		}
	}
	return false
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The client
// has no key to verify with; the claim only decides when to stop offering a
// stale session. Opaque tokens and tokens without exp yield nil.
func TokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
