package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fabrino-server/metrics"
	"fabrino-server/supabase"

	"github.com/google/uuid"
)

// View is the storefront page a session is looking at.
type View string

const (
	ViewHome    View = "home"
	ViewProduct View = "product"
	ViewSetup   View = "setup"
	ViewAdmin   View = "admin"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrNoProductSet = errors.New("product view requires a product id")
)

// EventKind names what changed in a session.
type EventKind string

const (
	EventSnapshot      EventKind = "snapshot"
	EventView          EventKind = "view"
	EventIdentity      EventKind = "identity"
	EventCart          EventKind = "cart"
	EventCheckout      EventKind = "checkout"
	EventProfileEditor EventKind = "profile_editor"
)

// SessionState is a point-in-time copy of a session.
type SessionState struct {
	ID                string         `json:"id"`
	View              View           `json:"view"`
	ProductID         string         `json:"product_id,omitempty"`
	User              *supabase.User `json:"user"`
	ProfileEditorOpen bool           `json:"profile_editor_open"`
	CartCount         int            `json:"cart_count"`
	Subtotal          float64        `json:"subtotal"`
	CheckoutStep      CheckoutStep   `json:"checkout_step"`
}

// SessionEvent is delivered to session observers.
type SessionEvent struct {
	Kind  EventKind    `json:"kind"`
	At    time.Time    `json:"at"`
	State SessionState `json:"state"`
}

// Session owns the per-visitor state: cart, checkout, identity and view.
type Session struct {
	ID       string
	Cart     *CartLedger
	Checkout *CheckoutSequencer

	mu                sync.Mutex
	view              View
	productID         string
	user              *supabase.User
	accessToken       string
	profileEditorOpen bool
	lastSeen          time.Time
	now               func() time.Time

	obsMu     sync.Mutex
	observers map[int]chan SessionEvent
	nextObs   int
	closed    bool
}

func newSession(id string, opts CheckoutOptions, now func() time.Time) *Session {
	cart := NewCartLedger()
	s := &Session{
		ID:        id,
		Cart:      cart,
		Checkout:  NewCheckoutSequencer(cart, opts),
		view:      ViewHome,
		lastSeen:  now(),
		now:       now,
		observers: make(map[int]chan SessionEvent),
	}
	cart.onChange = func() { s.notify(EventCart) }
	s.Checkout.onChange = func() { s.notify(EventCheckout) }
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	state := SessionState{
		ID:                s.ID,
		View:              s.view,
		ProductID:         s.productID,
		User:              s.user,
		ProfileEditorOpen: s.profileEditorOpen,
	}
	s.mu.Unlock()

	state.CartCount = s.Cart.Len()
	state.Subtotal = s.Cart.Subtotal()
	state.CheckoutStep = s.Checkout.State().Step
	return state
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Navigate switches the view. The product view needs a product id and the
// setup view needs a signed-in user. Going home clears the selected product.
func (s *Session) Navigate(view View, productID string) error {
	s.mu.Lock()
	switch view {
	case ViewHome, ViewAdmin:
		s.productID = ""
	case ViewProduct:
		if productID == "" {
			s.mu.Unlock()
			return ErrNoProductSet
		}
		s.productID = productID
	case ViewSetup:
		if s.user == nil {
			s.mu.Unlock()
			return ErrNotSignedIn
		}
	default:
		s.mu.Unlock()
		return ErrUnknownView
	}
	s.view = view
	s.mu.Unlock()

	s.notify(EventView)
	return nil
}

// SetIdentity records the signed-in user. A nil user clears the identity.
func (s *Session) SetIdentity(user *supabase.User, accessToken string) {
	s.mu.Lock()
	s.user = user
	s.accessToken = accessToken
	if user == nil {
		s.accessToken = ""
	}
	s.mu.Unlock()
	s.notify(EventIdentity)
}

// SignedOut clears the identity, returns home and closes the profile editor.
func (s *Session) SignedOut() {
	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.view = ViewHome
	s.productID = ""
	s.profileEditorOpen = false
	s.mu.Unlock()

	s.notify(EventIdentity)
	s.notify(EventView)
}

func (s *Session) User() *supabase.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// UserID returns the signed-in user's id, or nil.
func (s *Session) UserID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	id := s.user.ID
	return &id
}

// Context attaches the session's access token for backend calls.
func (s *Session) Context(ctx context.Context) context.Context {
	return supabase.WithAccessToken(ctx, s.AccessToken())
}

// SetProfileEditor opens or closes the profile editor. Opening needs a user.
func (s *Session) SetProfileEditor(open bool) error {
	s.mu.Lock()
	if open && s.user == nil {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	s.profileEditorOpen = open
	s.mu.Unlock()

	s.notify(EventProfileEditor)
	return nil
}

// Touch marks the session as active so Sweep keeps it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Subscribe registers an observer. Events are dropped for observers whose
// buffer is full. The returned func releases the observer and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, buffer)

	s.obsMu.Lock()
	if s.closed {
		s.obsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = ch
	s.obsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.obsMu.Lock()
			if c, ok := s.observers[id]; ok {
				delete(s.observers, id)
				close(c)
			}
			s.obsMu.Unlock()
		})
	}
}

func (s *Session) notify(kind EventKind) {
	evt := SessionEvent{Kind: kind, At: s.now(), State: s.State()}

	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for _, ch := range s.observers {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (s *Session) close() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.closed = true
	for id, ch := range s.observers {
		delete(s.observers, id)
		close(ch)
	}
}

// SessionStore holds live sessions keyed by id.
type SessionStore struct {
	ttl      time.Duration
	checkout CheckoutOptions
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore returns a store whose sessions expire after ttl of
// inactivity. Every session gets a checkout sequencer built from checkout.
func NewSessionStore(ttl time.Duration, checkout CheckoutOptions) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		checkout: checkout,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id without creating one.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Open returns the session with id, or a new one under a fresh id when id is
// empty or unknown. created reports whether a session was minted.
func (s *SessionStore) Open(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			sess.Touch()
			return sess, false
		}
	}

	sess = newSession(uuid.NewString(), s.checkout, s.now)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return sess, true
}

// Sweep drops sessions idle for longer than the ttl and returns how many went.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleFor(now) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	metrics.ActiveSessions.Set(float64(n))
	return len(expired)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
