package services

import (
	"context"
	"sync"
	"time"

	"fabrino-server/models"
	"fabrino-server/supabase"

	log "github.com/sirupsen/logrus"
)

// AuthNotifier delivers auth state changes.
type AuthNotifier interface {
	OnAuthStateChange(fn func(supabase.AuthEvent)) *supabase.Subscription
}

// ProfileReader looks up the profile linked to a user.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// IdentityTracker mirrors auth events onto sessions and sends users with an
// unfinished profile to the setup view.
type IdentityTracker struct {
	auth     AuthNotifier
	sessions *SessionStore
	profiles ProfileReader
	timeout  time.Duration

	mu  sync.Mutex
	sub *supabase.Subscription
}

// NewIdentityTracker returns a tracker. profiles may be nil, in which case
// the onboarding check is skipped.
func NewIdentityTracker(auth AuthNotifier, sessions *SessionStore, profiles ProfileReader) *IdentityTracker {
	return &IdentityTracker{
		auth:     auth,
		sessions: sessions,
		profiles: profiles,
		timeout:  10 * time.Second,
	}
}

// Start subscribes to auth events. Calling it twice is a no-op.
func (t *IdentityTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		return
	}
	t.sub = t.auth.OnAuthStateChange(t.handle)
}

// Close releases the subscription. It is safe to call more than once.
func (t *IdentityTracker) Close() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (t *IdentityTracker) handle(evt supabase.AuthEvent) {
	sess, ok := t.sessions.Get(evt.SessionID)
	if !ok {
		return
	}

	logger := log.WithFields(log.Fields{"session_id": evt.SessionID, "event": evt.Type})

	switch evt.Type {
	case supabase.EventSignedOut:
		sess.SignedOut()
		logger.Info("Session signed out")

	case supabase.EventInitialSession, supabase.EventSignedIn:
		if evt.Session == nil || evt.Session.User == nil {
			sess.SetIdentity(nil, "")
			return
		}
		sess.SetIdentity(evt.Session.User, evt.Session.AccessToken)
		logger = logger.WithField("user_id", evt.Session.User.ID)
		logger.Info("Session identity changed")

		if !t.onboarded(sess, evt.Session.User.ID) {
			if err := sess.Navigate(ViewSetup, ""); err != nil {
				logger.WithError(err).Warn("Failed to open setup view")
			}
		}
	}
}

// onboarded reports whether the user's profile exists and is marked complete.
// A failed lookup is logged and leaves the view alone.
func (t *IdentityTracker) onboarded(sess *Session, userID string) bool {
	if t.profiles == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(sess.Context(context.Background()), t.timeout)
	defer cancel()

	profile, err := t.profiles.GetProfile(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to read profile for onboarding check")
		return true
	}
	return profile != nil && profile.OnboardingComplete
}
