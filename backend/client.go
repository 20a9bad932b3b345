// Package backend is the HTTP client for the hosted contest backend: the
// participant-session function, the auth endpoints and the rest API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	interrors "github.com/jrsteele09/go-contest-portal/internal/errors"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultTimeout = 15 * time.Second

var (
	_ participant.Backend = (*Client)(nil)
	_ oauth2.TokenSource  = (*Client)(nil)
)

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	clock   clockwork.Clock

	mu    sync.RWMutex
	token *oauth2.Token
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(cl *Client) {
		cl.clock = clock
	}
}

// WithAnonKey sets the public key sent as the apikey header on every request.
func WithAnonKey(key string) Option {
	return func(cl *Client) {
		cl.anonKey = key
	}
}

func NewClient(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[backend.NewClient] invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// EnterSession exchanges contest and participant codes for a participant session.
// Rejections are returned as *Error carrying the backend's error code.
func (c *Client) EnterSession(ctx context.Context, contestCode, participantCode string) (*participant.Entry, error) {
	var resp ParticipantSessionResponse
	req := ParticipantSessionRequest{ContestCode: contestCode, ParticipantCode: participantCode}
	if err := c.do(ctx, http.MethodPost, PathParticipantSession, nil, req, false, &resp); err != nil {
		return nil, err
	}

	s := resp.Session
	return &participant.Entry{
		ContestID:        s.ContestID,
		ParticipantID:    s.ParticipantID,
		Code:             s.Code,
		OrganizationName: s.OrganizationName,
		ContestName:      s.ContestName,
		ParticipantName:  s.ParticipantName,
		SessionDuration:  time.Duration(resp.SessionDurationSeconds) * time.Second,
	}, nil
}

// SignIn authenticates with email and password and keeps the access token
// for later requests.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	var resp TokenResponse
	req := SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, PathToken, nil, req, false, &resp); err != nil {
		var be *Error
		if errors.As(err, &be) && (be.Status == http.StatusBadRequest || be.Status == http.StatusUnauthorized) {
			return nil, interrors.Wrapf(interrors.ErrInvalidCredentials, "[Client.SignIn] %s", be.Message)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, interrors.Wrapf(interrors.ErrUnexpectedResponse, "[Client.SignIn] missing access token")
	}

	tok := &oauth2.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = c.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	c.SetToken(tok)

	log.Info().Str("user_id", resp.User.ID).Str("role", resp.User.Role).Msg("signed in")
	return &resp.User, nil
}

// SetToken replaces the stored credential. nil signs out locally.
func (c *Client) SetToken(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// Token returns the stored credential.
func (c *Client) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return nil, interrors.ErrNotSignedIn
	}
	t := *c.token
	return &t, nil
}

func (c *Client) SignedIn() bool {
	_, err := c.Token()
	return err == nil
}

// Revoke signs the credential out on the server. The local credential is
// dropped whatever the outcome.
func (c *Client) Revoke(ctx context.Context) error {
	defer c.SetToken(nil)
	if !c.SignedIn() {
		return nil
	}
	return c.do(ctx, http.MethodPost, PathLogout, nil, nil, true, nil)
}

// Get reads a rest resource. params become the query string.
func (c *Client) Get(ctx context.Context, resource string, params map[string]string) (json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, PathRest+resource, q, nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Post writes to a rest resource.
func (c *Client) Post(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, PathRest+resource, nil, body, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// bearer returns the credential for an authenticated request, failing the
// same way the rest API would when it has already expired.
func (c *Client) bearer() (*oauth2.Token, error) {
	tok, err := c.Token()
	if err != nil {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "not authenticated"}
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return tok, nil // opaque token, leave expiry to the server
	}
	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !c.clock.Now().Before(exp.Time) {
		return nil, ErrJWTExpired()
	}
	return tok, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, authenticated bool, out any) error {
	var tok *oauth2.Token
	if authenticated {
		var err error
		if tok, err = c.bearer(); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] new request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "[Client.do] read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return interrors.Wrapf(interrors.ErrUnexpectedResponse, "[Client.do] %s %s: %v", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	e := &Error{Status: status}
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Code = body.Code
		e.Message = body.Message
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
