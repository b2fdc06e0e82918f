package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/docchat/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	apiLogin    = "/login"
	apiRegister = "/register"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPAuthenticator authenticates against a remote auth endpoint. Each call
// is a single request; there is no retry.
type HTTPAuthenticator struct {
	client   *http.Client
	baseURL  string
	validate *validator.Validate
}

// NewHTTPAuthenticator returns an authenticator posting to baseURL+"/login"
// and baseURL+"/register". A nil client uses http.DefaultClient.
func NewHTTPAuthenticator(baseURL string, client *http.Client) *HTTPAuthenticator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthenticator{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Login implements Authenticator.
func (a *HTTPAuthenticator) Login(ctx context.Context, c Credentials) (Result, error) {
	return a.post(ctx, OpLogin, apiLogin, "Login failed", loginRequest{
		Email:    c.Email,
		Password: c.Password,
	})
}

// Register implements Authenticator.
func (a *HTTPAuthenticator) Register(ctx context.Context, c Credentials) (Result, error) {
	return a.post(ctx, OpRegister, apiRegister, "Registration failed", registerRequest{
		Email:    c.Email,
		Password: c.Password,
		Name:     c.Name,
	})
}

// IssuesTokens implements Authenticator.
func (a *HTTPAuthenticator) IssuesTokens() bool { return true }

func (a *HTTPAuthenticator) post(ctx context.Context, op, path, fallback string, payload any) (Result, error) {
	fail := func(status int, msg string, err error) (Result, error) {
		return Result{}, &AuthError{Op: op, Message: msg, Status: status, Err: err}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fail(0, fallback, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fail(0, fallback, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fail(0, fallback, fmt.Errorf("%s request failed: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		var body errorResponse
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return fail(resp.StatusCode, body.Error, nil)
		}
		return fail(resp.StatusCode, fallback, nil)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fail(resp.StatusCode, fallback, fmt.Errorf("invalid response: %w", err))
	}
	if out.Token == "" || out.User == nil {
		return fail(resp.StatusCode, fallback, errors.New("invalid response: missing token or user"))
	}
	if err := a.validate.Struct(out.User); err != nil {
		return fail(resp.StatusCode, fallback, fmt.Errorf("invalid response: %w", err))
	}
	return Result{User: *out.User, Token: out.Token}, nil
}

// NewHTTPClient builds the client used to reach the auth endpoint. When
// caFile is set, the server certificate must chain to that CA. A zero
// timeout leaves the transport defaults in place.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if caFile == "" {
		return client, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return client, nil
}
