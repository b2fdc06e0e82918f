// Package session manages the authenticated session of the client and its
// persisted mirror in device-local storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/atinyakov/docchat/internal/client/storage"
	"github.com/atinyakov/docchat/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// State is the lifecycle state of the session.
type State int

const (
	// StateUnknown is the initial state until Bootstrap completes.
	StateUnknown State = iota
	// StateUnauthenticated means no user is signed in.
	StateUnauthenticated
	// StateAuthenticated means a user is signed in.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the authentication state.
// Authenticated implies User != nil.
type Session struct {
	User          *models.User
	Token         string
	Authenticated bool
	Loading       bool
}

// Store owns the Session for the lifetime of the process. It is created
// once at start-up and handed to the front-end.
type Store struct {
	kv       storage.KeyValueStore
	auth     Authenticator
	log      *zap.Logger
	validate *validator.Validate

	mu           sync.RWMutex
	session      Session
	state        State
	bootstrapped bool
}

// NewStore returns a Store in the Unknown state with Loading set.
func NewStore(kv storage.KeyValueStore, auth Authenticator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:       kv,
		auth:     auth,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		session:  Session{Loading: true},
		state:    StateUnknown,
	}
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.session
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Bootstrap restores a previously persisted session. It never fails: any
// problem with the stored data is logged and the session stays
// unauthenticated. Loading is always cleared. Only the first call has an
// effect.
func (s *Store) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return
	}
	s.bootstrapped = true
	s.mu.Unlock()

	user, token, err := s.restore(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Loading = false

	// a login that finished while restoring wins
	if s.state == StateAuthenticated {
		return
	}
	if err != nil {
		s.log.Warn("failed to restore session", zap.Error(err))
		s.state = StateUnauthenticated
		return
	}
	if user == nil {
		s.log.Debug("no persisted session")
		s.state = StateUnauthenticated
		return
	}
	s.session = Session{User: user, Token: token, Authenticated: true}
	s.state = StateAuthenticated
	s.log.Info("session restored", zap.String("user_id", user.ID))
}

// restore returns (nil, "", nil) when nothing usable is persisted.
func (s *Store) restore(ctx context.Context) (*models.User, string, error) {
	token, hasToken, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, "", &RestoreError{Key: storage.KeyAuthToken, Err: err}
	}
	raw, hasUser, err := s.kv.Get(ctx, storage.KeyUser)
	if err != nil {
		return nil, "", &RestoreError{Key: storage.KeyUser, Err: err}
	}
	if !hasUser || (s.auth.IssuesTokens() && (!hasToken || token == "")) {
		return nil, "", nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, "", &RestoreError{Key: storage.KeyUser, Err: err}
	}
	if err := s.validate.Struct(&user); err != nil {
		return nil, "", &RestoreError{Key: storage.KeyUser, Err: err}
	}
	return &user, token, nil
}

// Login authenticates with email and password. Authentication failures
// are returned as *AuthError; persistence failures are only logged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, OpLogin, Credentials{Email: email, Password: password})
}

// Register creates an account and signs it in.
func (s *Store) Register(ctx context.Context, email, password, name string) error {
	return s.authenticate(ctx, OpRegister, Credentials{Email: email, Password: password, Name: name})
}

func (s *Store) authenticate(ctx context.Context, op string, c Credentials) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var (
		res Result
		err error
	)
	if op == OpRegister {
		res, err = s.auth.Register(ctx, c)
	} else {
		res, err = s.auth.Login(ctx, c)
	}
	if err != nil {
		s.log.Error(op+" error", zap.String("email", c.Email), zap.Error(err))
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			err = &AuthError{Op: op, Message: fallbackMessage(op), Err: err}
		}
		return err
	}
	// the same rule Bootstrap applies, so a signed-in user always restores
	if err := s.validate.Struct(&res.User); err != nil {
		s.log.Error(op+" returned an invalid user", zap.String("email", c.Email), zap.Error(err))
		return &AuthError{Op: op, Message: invalidUserMessage(err), Err: err}
	}

	s.logTokenClaims(res.Token)
	s.persist(ctx, res)

	user := res.User
	s.mu.Lock()
	s.session.User = &user
	s.session.Token = res.Token
	s.session.Authenticated = true
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.log.Info(op+" succeeded", zap.String("user_id", user.ID))
	return nil
}

func (s *Store) persist(ctx context.Context, res Result) {
	b, err := json.Marshal(res.User)
	if err != nil {
		s.log.Error("failed to encode user", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyUser, string(b)); err != nil {
		s.log.Error("failed to persist session",
			zap.Error(&StorageError{Key: storage.KeyUser, Op: "set", Err: err}))
	}
	if res.Token == "" {
		return
	}
	if err := s.kv.Set(ctx, storage.KeyAuthToken, res.Token); err != nil {
		s.log.Error("failed to persist session",
			zap.Error(&StorageError{Key: storage.KeyAuthToken, Op: "set", Err: err}))
	}
}

func (s *Store) logTokenClaims(token string) {
	if token == "" {
		return
	}
	claims, err := TokenClaims(token)
	if err != nil {
		s.log.Debug("token is not a decodable JWT", zap.Error(err))
		return
	}
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if exp != nil && iat != nil {
		s.log.Debug("token received", zap.Duration("lifetime", exp.Sub(iat.Time)))
	}
}

// Logout clears persisted user, token and chats and resets the session.
// Storage errors are logged; the in-memory session is always cleared.
func (s *Store) Logout(ctx context.Context) {
	s.setLoading(true)

	var errs error
	for _, key := range []string{storage.KeyAuthToken, storage.KeyUser, storage.KeyChats} {
		if err := s.kv.Remove(ctx, key); err != nil {
			errs = multierr.Append(errs, &StorageError{Key: key, Op: "remove", Err: err})
		}
	}
	if errs != nil {
		s.log.Error("logout cleanup failed", zap.Error(errs))
	}

	s.mu.Lock()
	s.session = Session{}
	s.state = StateUnauthenticated
	s.mu.Unlock()
	s.log.Info("logged out")
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.session.Loading = v
	s.mu.Unlock()
}

func invalidUserMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Email" {
				return "Invalid email address"
			}
		}
	}
	return "Invalid account details"
}

func fallbackMessage(op string) string {
	if op == OpRegister {
		return "Registration failed"
	}
	return "Login failed"
}
