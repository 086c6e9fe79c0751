// Package client is the session-aware HTTP client used by pedeai-cli and the end-to-end tests.
// It plays the browser's part: the bridge holds the token copies, and page requests carry
// only the cookie copy so the edge gate sees what a browser would send.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	authapi "pedeai/cmd/internal/auth/api"
	"pedeai/cmd/internal/auth/session"
)

// ErrInvalidCredentials is returned by Login when the email and password do not match.
var ErrInvalidCredentials = errors.New("email or password is incorrect")

// APIError is a non-success response from the auth API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to a PedeAí server on behalf of one local session.
type Client struct {
	baseURL  string
	http     *http.Client
	bridge   *session.Bridge
	provider *session.Provider
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client. Redirects are never followed regardless.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a Client for baseURL that persists sessions through bridge.
func New(baseURL string, bridge *session.Bridge, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: empty base URL")
	}
	if bridge == nil {
		return nil, errors.New("client: nil session bridge")
	}

	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		bridge:   bridge,
		provider: session.NewProvider(bridge),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	// The bridge is the only cookie writer: no jar, and redirects surface to the caller.
	c.http.Jar = nil
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

// RegisterInput is the registration form. The server requires every field.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	CPFCNPJ  string `json:"cpf_cnpj"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, in RegisterInput) (authapi.UserResponse, error) {
	var out authapi.UserEnvelope
	if err := c.postJSON(ctx, "/auth/register", in, http.StatusCreated, &out); err != nil {
		return authapi.UserResponse{}, err
	}
	return out.User, nil
}

// Login authenticates and persists the issued token into both stores.
// On any failure neither store is touched.
func (c *Client) Login(ctx context.Context, email, password string) (authapi.LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var out authapi.LoginResponse
	if err := c.postJSON(ctx, "/auth/login", body, http.StatusOK, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return authapi.LoginResponse{}, ErrInvalidCredentials
		}
		return authapi.LoginResponse{}, err
	}
	if out.Token == "" {
		return authapi.LoginResponse{}, errors.New("client: login response without token")
	}

	if err := c.bridge.Persist(ctx, out.Token); err != nil {
		return authapi.LoginResponse{}, err
	}
	c.log.Debug("client.login.ok", "user_id", out.User.ID)
	return out, nil
}

// Logout tells the server and clears both local copies. The local clear runs even when
// the server is unreachable, since the token is not revocable server-side anyway.
func (c *Client) Logout(ctx context.Context) error {
	var serverErr error
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if err == nil {
		var resp *http.Response
		resp, serverErr = c.http.Do(req)
		if serverErr == nil {
			drain(resp)
		}
	} else {
		serverErr = err
	}
	if serverErr != nil {
		c.log.Warn("client.logout.server_unreachable", "err", serverErr)
	}

	return c.provider.Logout(ctx)
}

// Whoami loads the provider state from the local copy, clearing an invalid token.
func (c *Client) Whoami(ctx context.Context) (session.State, error) {
	return c.provider.Load(ctx)
}

// Me asks the server who the stored token belongs to.
func (c *Client) Me(ctx context.Context) (authapi.UserResponse, error) {
	tok, ok, err := c.bridge.Read(ctx)
	if err != nil {
		return authapi.UserResponse{}, err
	}
	if !ok {
		return authapi.UserResponse{}, &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "no local session"}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return authapi.UserResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	var out authapi.UserEnvelope
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return authapi.UserResponse{}, err
	}
	return out.User, nil
}

// Get fetches a page path the way a browser navigation would: the cookie copy is attached,
// the local copy is not, and redirects are returned rather than followed.
// The caller closes the response body.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	tok, ok, err := c.bridge.ReadCookie(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		req.AddCookie(&http.Cookie{Name: session.AuthCookieName, Value: tok})
	}
	return c.http.Do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, want int, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, want, out)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
