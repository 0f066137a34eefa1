package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthEventType names an auth state transition.
type AuthEventType string

const (
	EventInitialSession AuthEventType = "INITIAL_SESSION"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
)

// ErrNoSession is returned when sign-up succeeded but the project requires
// email confirmation before issuing a session.
var ErrNoSession = errors.New("no session issued")

// User represents an authenticated backend user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is an issued access token and the user it belongs to.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// AuthEvent is delivered to auth state listeners. SessionID identifies the
// browser session the transition happened in; Session is nil after sign-out
// or when no session could be resolved.
type AuthEvent struct {
	Type      AuthEventType
	SessionID string
	Session   *Session
}

// Subscription is a registered auth state listener.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel; it runs at most once.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe releases the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// AuthClient handles authentication and fans out auth state changes.
type AuthClient struct {
	client    *Client
	jwtSecret string

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(AuthEvent)
}

// NewAuth returns an auth client. A non-empty jwtSecret lets access tokens be
// verified locally instead of with a round trip to /auth/v1/user.
func NewAuth(c *Client, jwtSecret string) *AuthClient {
	return &AuthClient{
		client:    c,
		jwtSecret: jwtSecret,
		listeners: make(map[int]func(AuthEvent)),
	}
}

// OnAuthStateChange registers fn for every subsequent auth event.
func (a *AuthClient) OnAuthStateChange(fn func(AuthEvent)) *Subscription {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return NewSubscription(func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	})
}

func (a *AuthClient) emit(evt AuthEvent) {
	a.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// SignUp creates a user. When the project auto-confirms, the returned session
// is live and SIGNED_IN is emitted; otherwise ErrNoSession is returned along
// with the pending user.
func (a *AuthClient) SignUp(ctx context.Context, sessionID, email, password string) (*Session, error) {
	resp, err := a.post(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if session.AccessToken == "" {
		var user User
		if err := json.Unmarshal(resp.Body, &user); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &Session{User: &user}, ErrNoSession
	}

	session.stampExpiry()
	a.emit(AuthEvent{Type: EventSignedIn, SessionID: sessionID, Session: &session})
	return &session, nil
}

// SignIn exchanges email and password for a session and emits SIGNED_IN.
func (a *AuthClient) SignIn(ctx context.Context, sessionID, email, password string) (*Session, error) {
	resp, err := a.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	session.stampExpiry()

	a.emit(AuthEvent{Type: EventSignedIn, SessionID: sessionID, Session: &session})
	return &session, nil
}

// SignOut revokes accessToken and emits SIGNED_OUT. The event is emitted even
// when the revoke call fails.
func (a *AuthClient) SignOut(ctx context.Context, sessionID, accessToken string) error {
	defer a.emit(AuthEvent{Type: EventSignedOut, SessionID: sessionID})

	if accessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	a.client.setHeaders(WithAccessToken(ctx, accessToken), req)

	resp, err := a.client.do(req)
	if err != nil {
		return err
	}
	return resp.Error()
}

// GetUser fetches the user owning accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.client.setHeaders(WithAccessToken(ctx, accessToken), req)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// ResolveSession turns an access token presented by a returning browser into
// a session and emits INITIAL_SESSION. An empty or invalid token resolves to
// no session.
func (a *AuthClient) ResolveSession(ctx context.Context, sessionID, accessToken string) (*Session, error) {
	if accessToken == "" {
		a.emit(AuthEvent{Type: EventInitialSession, SessionID: sessionID})
		return nil, nil
	}

	var (
		user *User
		err  error
	)
	if a.jwtSecret != "" {
		user, err = VerifyAccessToken(accessToken, a.jwtSecret)
		// Tokens the secret cannot check, such as asymmetric ones, go to the server.
		if err != nil && !errors.Is(err, jwt.ErrTokenSignatureInvalid) && !errors.Is(err, jwt.ErrTokenExpired) {
			user, err = a.GetUser(ctx, accessToken)
		}
	} else {
		user, err = a.GetUser(ctx, accessToken)
	}
	if err != nil {
		a.emit(AuthEvent{Type: EventInitialSession, SessionID: sessionID})
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	session := &Session{AccessToken: accessToken, TokenType: "bearer", User: user}
	a.emit(AuthEvent{Type: EventInitialSession, SessionID: sessionID, Session: session})
	return session, nil
}

func (a *AuthClient) post(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.client.setHeaders(ctx, req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Session) stampExpiry() {
	if s.ExpiresIn > 0 && s.ExpiresAt == 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}
