package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/dmitrijs2005/ballot/internal/logging"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	RequestIDHeaderName = "X-Request-ID"

	maxResponseBytes = 4 << 20
)

// messagePaths are the places the backend has been seen to put a
// human-readable message, in lookup order.
var messagePaths = []string{"message", "error.message", "error", "msg", "detail", "errors.0.message", "errors.0"}

type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	log     logging.Logger
}

// NewHTTPClient returns a client for the backend at baseURL. timeout bounds
// each request; zero means no client-side limit.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server address %q: scheme must be http or https", baseURL)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "gateway"),
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) LoginVoter(ctx context.Context, aadhar, phoneNo string) (*models.Voter, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "login_voter", map[string]string{
		"aadhar":   aadhar,
		"phone_no": phoneNo,
	}, ErrAuth)
	if err != nil {
		return nil, err
	}

	var voter models.Voter
	if err := decodeField(body, "voter", &voter); err != nil {
		return nil, err
	}
	return &voter, nil
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, phoneNo, otp string) (*models.Voter, *models.BlockchainInfo, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "verify_otp", map[string]string{
		"phone_no": phoneNo,
		"otp":      otp,
	}, ErrAuth)
	if err != nil {
		return nil, nil, err
	}

	var resp struct {
		Voter          models.Voter           `json:"voter"`
		BlockchainInfo *models.BlockchainInfo `json:"blockchainInfo"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, nil, err
	}
	if resp.BlockchainInfo == nil {
		resp.BlockchainInfo = &models.BlockchainInfo{}
	}
	return &resp.Voter, resp.BlockchainInfo, nil
}

func (c *HTTPClient) GetAllPolls(ctx context.Context, stateID models.ID) ([]models.Poll, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "get_all_polls/"+stateID.String(), nil, ErrNotFound)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Polls []models.Poll `json:"polls"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	return resp.Polls, nil
}

// CastVote records a vote. A 2xx answer with success=false is a rejection:
// a message about an existing vote means ErrConflict, anything else
// ErrValidation (closed poll, unknown party and similar).
func (c *HTTPClient) CastVote(ctx context.Context, req models.CastVoteRequest) (*models.CastVoteResult, error) {
	ctx = requestContext(ctx)
	body, err := c.doJSON(ctx, http.MethodPost, "cast_vote", req, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && mentionsExistingVote(apiErr.Message) {
			apiErr.Kind = ErrConflict
		}
		return nil, err
	}

	var res models.CastVoteResult
	if err := decode(body, &res); err != nil {
		return nil, err
	}
	if gjson.GetBytes(body, "success").Exists() && !res.Success {
		kind := ErrValidation
		if mentionsExistingVote(res.Message) {
			kind = ErrConflict
		}
		return nil, &APIError{Kind: kind, Status: http.StatusOK, Message: res.Message, RequestID: RequestID(ctx)}
	}
	res.Success = true
	return &res, nil
}

func mentionsExistingVote(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already")
}

func (c *HTTPClient) AdminLogin(ctx context.Context, username, password string) (*models.AdminSession, error) {
	ctx = requestContext(ctx)
	body, err := c.doJSON(ctx, http.MethodPost, "login", map[string]string{
		"username": username,
		"password": password,
	}, ErrAuth)
	if err != nil {
		return nil, err
	}

	var s models.AdminSession
	if err := decode(body, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, &APIError{Kind: ErrAuth, Status: http.StatusOK, Message: "login response carried no token", RequestID: RequestID(ctx)}
	}
	return &s, nil
}

func (c *HTTPClient) ConductPoll(ctx context.Context, form models.PollForm) (*models.Poll, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "conduct_poll", form, ErrValidation)
	if err != nil {
		return nil, err
	}

	var poll models.Poll
	if err := decodeField(body, "poll", &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

func (c *HTTPClient) PartyWiseVotingCount(ctx context.Context) (*models.Tally, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "party-wise-voting-count", nil, ErrServer)
	if err != nil {
		return nil, err
	}

	var t models.Tally
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) GetAllStates(ctx context.Context) ([]models.State, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "get_all_states", nil, ErrServer)
	if err != nil {
		return nil, err
	}

	var resp struct {
		States []models.State `json:"states"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	return resp.States, nil
}

func (c *HTTPClient) GetAllParties(ctx context.Context) ([]models.Party, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "get_all_parties", nil, ErrServer)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Parties []models.Party `json:"parties"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	return resp.Parties, nil
}

func (c *HTTPClient) CreateParty(ctx context.Context, reg models.PartyRegistration, logo *Attachment) (*models.Party, error) {
	fields := [][2]string{
		{"name", reg.Name},
		{"abbreviation", reg.Abbreviation},
		{"state_id", reg.StateID.String()},
	}
	body, err := c.doMultipart(ctx, "create_party", fields, "logo", logo)
	if err != nil {
		return nil, err
	}

	var party models.Party
	if err := decodeField(body, "party", &party); err != nil {
		return nil, err
	}
	return &party, nil
}

func (c *HTTPClient) AddVoter(ctx context.Context, reg models.VoterRegistration) (*models.Voter, error) {
	fields := [][2]string{
		{"name", reg.Name},
		{"aadhar", reg.Aadhar},
		{"phone_no", reg.PhoneNo},
		{"state_id", reg.StateID.String()},
	}
	body, err := c.doMultipart(ctx, "add_voter", fields, "", nil)
	if err != nil {
		return nil, err
	}

	var voter models.Voter
	if err := decodeField(body, "voter", &voter); err != nil {
		return nil, err
	}
	return &voter, nil
}

func (c *HTTPClient) ResetAllPolls(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "reset_all_polls", nil, ErrServer)
	return err
}

// doJSON sends payload (if any) as JSON. rejectKind, when non-nil, turns a
// 2xx body with "success": false into an *APIError of that kind.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, rejectKind error) ([]byte, error) {
	ctx = requestContext(ctx)
	var (
		reader      io.Reader
		contentType string
	)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}

	body, err := c.do(ctx, method, path, reader, contentType)
	if err != nil {
		return nil, err
	}

	if rejectKind != nil {
		if s := gjson.GetBytes(body, "success"); s.Exists() && !s.Bool() {
			return nil, &APIError{Kind: rejectKind, Status: http.StatusOK, Message: extractMessage(body), RequestID: RequestID(ctx)}
		}
	}
	return body, nil
}

func (c *HTTPClient) doMultipart(ctx context.Context, path string, fields [][2]string, fileField string, file *Attachment) ([]byte, error) {
	ctx = requestContext(ctx)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("encode %s form: %w", path, err)
		}
	}
	if file != nil && file.Body != nil {
		part, err := mw.CreateFormFile(fileField, file.FileName)
		if err != nil {
			return nil, fmt.Errorf("encode %s form: %w", path, err)
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, fmt.Errorf("read %s: %w", file.FileName, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode %s form: %w", path, err)
	}

	body, err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	if s := gjson.GetBytes(body, "success"); s.Exists() && !s.Bool() {
		return nil, &APIError{Kind: ErrValidation, Status: http.StatusOK, Message: extractMessage(body), RequestID: RequestID(ctx)}
	}
	return body, nil
}

// requestContext gives ctx a fresh request id unless the caller set one, so
// the X-Request-ID header and any *APIError carry the same value.
func requestContext(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	ctx = requestContext(ctx)
	reqID := RequestID(ctx)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeaderName, reqID)
	if token := AccessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(err)
	}

	c.log.Debug(ctx, "request done",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Kind:      kindForStatus(resp.StatusCode),
			Status:    resp.StatusCode,
			Message:   extractMessage(data),
			RequestID: reqID,
		}
	}
	return data, nil
}

// extractMessage finds the backend's message in whatever shape it used.
func extractMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, p := range messagePaths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed response: %w", ErrServer, err)
	}
	return nil
}

// decodeField decodes body[field] when present, otherwise the whole body.
func decodeField(body []byte, field string, v any) error {
	if r := gjson.GetBytes(body, field); r.Exists() && r.IsObject() {
		return decode([]byte(r.Raw), v)
	}
	return decode(body, v)
}
