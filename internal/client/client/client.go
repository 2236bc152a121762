package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/ballot/internal/client/models"
)

// Client is the backend contract used by the flow controllers.
type Client interface {
	LoginVoter(ctx context.Context, aadhar, phoneNo string) (*models.Voter, error)
	VerifyOTP(ctx context.Context, phoneNo, otp string) (*models.Voter, *models.BlockchainInfo, error)
	GetAllPolls(ctx context.Context, stateID models.ID) ([]models.Poll, error)
	CastVote(ctx context.Context, req models.CastVoteRequest) (*models.CastVoteResult, error)

	AdminLogin(ctx context.Context, username, password string) (*models.AdminSession, error)
	ConductPoll(ctx context.Context, form models.PollForm) (*models.Poll, error)
	PartyWiseVotingCount(ctx context.Context) (*models.Tally, error)
	GetAllStates(ctx context.Context) ([]models.State, error)
	GetAllParties(ctx context.Context) ([]models.Party, error)
	CreateParty(ctx context.Context, reg models.PartyRegistration, logo *Attachment) (*models.Party, error)
	AddVoter(ctx context.Context, reg models.VoterRegistration) (*models.Voter, error)
	ResetAllPolls(ctx context.Context) error

	Close() error
}

// Attachment is a file sent in a multipart form.
type Attachment struct {
	FileName string
	Body     io.Reader
}

type ctxKey int

const (
	accessTokenKey ctxKey = iota
	requestIDKey
)

// WithAccessToken returns a context whose requests carry the admin token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// WithRequestID returns a context whose request is tagged with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// AccessToken returns the admin token carried by ctx, or "".
func AccessToken(ctx context.Context) string {
	s, _ := ctx.Value(accessTokenKey).(string)
	return s
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}
