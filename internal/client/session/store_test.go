package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/docchat/internal/client/storage"
	"github.com/atinyakov/docchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// failingStore wraps a MemoryStore and fails selected operations.
type failingStore struct {
	*storage.MemoryStore
	getErr    error
	setErr    error
	removeErr error
	removed   []string
	mu        sync.Mutex
}

func newFailingStore() *failingStore {
	return &failingStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *failingStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	f.removed = append(f.removed, key)
	f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.MemoryStore.Remove(ctx, key)
}

// fakeAuth is a scripted Authenticator.
type fakeAuth struct {
	result Result
	err    error
	tokens bool
	calls  []Credentials
}

func (f *fakeAuth) Login(_ context.Context, c Credentials) (Result, error) {
	f.calls = append(f.calls, c)
	return f.result, f.err
}

func (f *fakeAuth) Register(_ context.Context, c Credentials) (Result, error) {
	f.calls = append(f.calls, c)
	return f.result, f.err
}

func (f *fakeAuth) IssuesTokens() bool { return f.tokens }

func observedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func putUser(t *testing.T, kv storage.KeyValueStore, u models.User) {
	t.Helper()
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), storage.KeyUser, string(b)))
}

var alice = models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}

func TestNewStore_InitialState(t *testing.T) {
	s := NewStore(storage.NewMemoryStore(), &fakeAuth{}, nil)
	assert.Equal(t, StateUnknown, s.State())
	sess := s.Session()
	assert.True(t, sess.Loading)
	assert.False(t, sess.Authenticated)
	assert.Nil(t, sess.User)
}

func TestBootstrap(t *testing.T) {
	validUser, _ := json.Marshal(alice)

	tests := []struct {
		name      string
		tokens    bool
		stored    map[string]string
		getErr    error
		wantAuth  bool
		wantToken string
		wantWarn  bool
	}{
		{
			name:      "token and user restore http session",
			tokens:    true,
			stored:    map[string]string{storage.KeyAuthToken: "tok", storage.KeyUser: string(validUser)},
			wantAuth:  true,
			wantToken: "tok",
		},
		{
			name:   "missing token with token-issuing authenticator",
			tokens: true,
			stored: map[string]string{storage.KeyUser: string(validUser)},
		},
		{
			name:     "mock variant restores from user alone",
			stored:   map[string]string{storage.KeyUser: string(validUser)},
			wantAuth: true,
		},
		{
			name: "empty storage",
		},
		{
			name:     "corrupt user payload",
			stored:   map[string]string{storage.KeyUser: "{not json"},
			wantWarn: true,
		},
		{
			name:     "user fails schema validation",
			stored:   map[string]string{storage.KeyUser: `{"id":"","name":"x","email":"nope"}`},
			wantWarn: true,
		},
		{
			name:     "storage read failure",
			getErr:   errors.New("disk gone"),
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newFailingStore()
			for k, v := range tt.stored {
				require.NoError(t, kv.MemoryStore.Set(context.Background(), k, v))
			}
			kv.getErr = tt.getErr
			log, logs := observedLogger(zapcore.DebugLevel)

			s := NewStore(kv, &fakeAuth{tokens: tt.tokens}, log)
			s.Bootstrap(context.Background())

			sess := s.Session()
			assert.False(t, sess.Loading, "loading must be cleared")
			assert.Equal(t, tt.wantAuth, sess.Authenticated)
			if tt.wantAuth {
				require.NotNil(t, sess.User)
				assert.Equal(t, alice, *sess.User)
				assert.Equal(t, tt.wantToken, sess.Token)
				assert.Equal(t, StateAuthenticated, s.State())
			} else {
				assert.Nil(t, sess.User)
				assert.Equal(t, StateUnauthenticated, s.State())
			}

			warns := logs.FilterMessage("failed to restore session").All()
			if tt.wantWarn {
				require.Len(t, warns, 1)
				err, _ := warns[0].ContextMap()["error"].(string)
				assert.Contains(t, err, "restore session")
			} else {
				assert.Empty(t, warns)
			}
		})
	}
}

func TestBootstrap_OnlyOnce(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv, &fakeAuth{}, nil)
	s.Bootstrap(context.Background())
	assert.Equal(t, StateUnauthenticated, s.State())

	putUser(t, kv, alice)
	s.Bootstrap(context.Background())
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestLogin_MockVariant(t *testing.T) {
	kv := storage.NewMemoryStore()
	auth := NewMockAuthenticator(20 * time.Millisecond)
	s := NewStore(kv, auth, nil)
	s.Bootstrap(context.Background())

	start := time.Now()
	require.NoError(t, s.Login(context.Background(), "demo@x.com", "any"))
	elapsed := time.Since(start)

	sess := s.Session()
	assert.True(t, sess.Authenticated)
	require.NotNil(t, sess.User)
	assert.Equal(t, "demo", sess.User.Name)
	assert.Equal(t, "demo@x.com", sess.User.Email)
	assert.NotEmpty(t, sess.User.ID)
	assert.Empty(t, sess.Token)
	assert.False(t, sess.Loading)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)

	raw, ok, _ := kv.Get(context.Background(), storage.KeyUser)
	require.True(t, ok)
	var persisted models.User
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, *sess.User, persisted)
	_, hasToken, _ := kv.Get(context.Background(), storage.KeyAuthToken)
	assert.False(t, hasToken)
}

func TestLogin_MockVariantRestoresAfterRestart(t *testing.T) {
	tests := []struct {
		email   string
		wantErr string
	}{
		{email: "demo@x.com"},
		{email: "demo", wantErr: "Invalid email address"},
		{email: "@x.com", wantErr: "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			ctx := context.Background()
			kv := storage.NewMemoryStore()
			auth := NewMockAuthenticator(0)
			s := NewStore(kv, auth, nil)
			s.Bootstrap(ctx)

			err := s.Login(ctx, tt.email, "x")
			next := NewStore(kv, auth, nil)
			next.Bootstrap(ctx)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, next.Session().Authenticated)
				assert.Equal(t, s.Session().User, next.Session().User)
				return
			}
			assert.ErrorIs(t, err, ErrAuthentication)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.wantErr, authErr.Message)
			assert.False(t, s.Session().Authenticated)
			assert.Equal(t, StateUnauthenticated, s.State())
			_, ok, _ := kv.Get(ctx, storage.KeyUser)
			assert.False(t, ok)
			assert.False(t, next.Session().Authenticated)
		})
	}
}

func TestRegister_RejectsUserWithoutName(t *testing.T) {
	bad := alice
	bad.Name = ""
	s := NewStore(storage.NewMemoryStore(), &fakeAuth{tokens: true, result: Result{User: bad, Token: "t"}}, nil)

	err := s.Register(context.Background(), "alice@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrRegistration)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid account details", authErr.Message)
	assert.False(t, s.Session().Authenticated)
}

func TestLogin_ServerVariantPersistsToken(t *testing.T) {
	kv := storage.NewMemoryStore()
	auth := &fakeAuth{tokens: true, result: Result{User: alice, Token: "tok-1"}}
	s := NewStore(kv, auth, nil)

	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))
	sess := s.Session()
	assert.Equal(t, alice, *sess.User)
	assert.Equal(t, "tok-1", sess.Token)

	tok, ok, _ := kv.Get(context.Background(), storage.KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	// a fresh process restores the same session
	next := NewStore(kv, auth, nil)
	next.Bootstrap(context.Background())
	assert.True(t, next.Session().Authenticated)
	assert.Equal(t, "tok-1", next.Session().Token)
}

func TestLogin_FailurePropagates(t *testing.T) {
	kv := storage.NewMemoryStore()
	want := &AuthError{Op: OpLogin, Message: "Invalid credentials", Status: 401}
	s := NewStore(kv, &fakeAuth{err: want}, nil)
	s.Bootstrap(context.Background())

	err := s.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.NotErrorIs(t, err, ErrRegistration)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)

	sess := s.Session()
	assert.False(t, sess.Authenticated)
	assert.False(t, sess.Loading)
	assert.Equal(t, StateUnauthenticated, s.State())
	_, ok, _ := kv.Get(context.Background(), storage.KeyUser)
	assert.False(t, ok)
}

func TestRegister_WrapsForeignErrors(t *testing.T) {
	s := NewStore(storage.NewMemoryStore(), &fakeAuth{err: errors.New("boom")}, nil)
	err := s.Register(context.Background(), "a@b.c", "pw", "A")
	assert.ErrorIs(t, err, ErrRegistration)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Registration failed", authErr.Message)
}

func TestRegister_PassesName(t *testing.T) {
	auth := &fakeAuth{result: Result{User: alice}}
	s := NewStore(storage.NewMemoryStore(), auth, nil)
	require.NoError(t, s.Register(context.Background(), "alice@example.com", "pw", "Alice"))
	require.Len(t, auth.calls, 1)
	assert.Equal(t, Credentials{Email: "alice@example.com", Password: "pw", Name: "Alice"}, auth.calls[0])
	assert.True(t, s.Session().Authenticated)
}

func TestLogin_StorageWriteFailureIsLogged(t *testing.T) {
	kv := newFailingStore()
	kv.setErr = errors.New("quota exceeded")
	log, logs := observedLogger(zapcore.ErrorLevel)

	s := NewStore(kv, &fakeAuth{result: Result{User: alice, Token: "t"}}, log)
	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))

	// the user sees success even though nothing was persisted
	assert.True(t, s.Session().Authenticated)
	assert.Equal(t, 2, logs.FilterMessage("failed to persist session").Len())
	_, ok, _ := kv.MemoryStore.Get(context.Background(), storage.KeyUser)
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	kv := newFailingStore()
	require.NoError(t, kv.Set(ctx, storage.KeyChats, "[]"))
	s := NewStore(kv, &fakeAuth{result: Result{User: alice, Token: "t"}}, nil)
	require.NoError(t, s.Login(ctx, "alice@example.com", "pw"))

	s.Logout(ctx)
	first := s.Session()
	assert.Equal(t, Session{}, first)
	assert.Equal(t, StateUnauthenticated, s.State())
	for _, k := range []string{storage.KeyAuthToken, storage.KeyUser, storage.KeyChats} {
		_, ok, _ := kv.Get(ctx, k)
		assert.False(t, ok, "key %s should be cleared", k)
	}

	s.Logout(ctx)
	assert.Equal(t, first, s.Session())
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestLogout_StorageErrorsSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := newFailingStore()
	log, logs := observedLogger(zapcore.ErrorLevel)
	s := NewStore(kv, &fakeAuth{result: Result{User: alice}}, log)
	require.NoError(t, s.Login(ctx, "alice@example.com", "pw"))

	kv.removeErr = errors.New("locked")
	s.Logout(ctx)

	assert.False(t, s.Session().Authenticated)
	assert.Nil(t, s.Session().User)
	assert.ElementsMatch(t, []string{storage.KeyAuthToken, storage.KeyUser, storage.KeyChats}, kv.removed)
	entries := logs.FilterMessage("logout cleanup failed").All()
	require.Len(t, entries, 1)
	msg, _ := entries[0].ContextMap()["error"].(string)
	assert.Contains(t, msg, "remove chats")
}

func TestSession_ReturnsCopy(t *testing.T) {
	s := NewStore(storage.NewMemoryStore(), &fakeAuth{result: Result{User: alice}}, nil)
	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))

	snap := s.Session()
	snap.User.Name = "Mallory"
	assert.Equal(t, "Alice", s.Session().User.Name)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
}
