package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fabrino-server/models"
	"fabrino-server/utils"

	log "github.com/sirupsen/logrus"
)

// ErrAuthDisabled is returned by account features when no backend is configured.
var ErrAuthDisabled = errors.New("backend auth is not configured")

// ProfileStore reads and writes the profiles table.
type ProfileStore interface {
	ProfileReader
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) error
	UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error
}

// OnboardingForm is what the setup wizard collects. Only the last four card
// digits leave this struct.
type OnboardingForm struct {
	models.ContactDetails
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CVC        string `json:"cvc"`
}

// ProfileService runs the onboarding and profile edit flows.
type ProfileService struct {
	store ProfileStore
	now   func() time.Time
}

// NewProfileService returns a service over store. A nil store disables it.
func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

func (p *ProfileService) userID(sess *Session) (string, error) {
	if p.store == nil {
		return "", ErrAuthDisabled
	}
	id := sess.UserID()
	if id == nil {
		return "", ErrNotSignedIn
	}
	return *id, nil
}

// Get returns the session user's profile, or nil when none exists yet.
func (p *ProfileService) Get(ctx context.Context, sess *Session) (*models.Profile, error) {
	id, err := p.userID(sess)
	if err != nil {
		return nil, err
	}

	profile, err := p.store.GetProfile(sess.Context(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// Save upserts the contact details of the session user.
func (p *ProfileService) Save(ctx context.Context, sess *Session, d models.ContactDetails) error {
	id, err := p.userID(sess)
	if err != nil {
		return err
	}

	if err := p.store.UpsertProfile(sess.Context(ctx), id, models.PatchFromContact(d, p.now().UTC())); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	log.WithField("user_id", id).Info("Profile updated")
	return nil
}

// CompleteOnboarding stores the wizard result and sends the session home.
// A failed write is logged and the flow still completes; synced reports
// whether the profile was actually written.
func (p *ProfileService) CompleteOnboarding(ctx context.Context, sess *Session, form OnboardingForm) (synced bool, err error) {
	id, err := p.userID(sess)
	if err != nil {
		return false, err
	}

	patch := models.PatchFromContact(form.ContactDetails, p.now().UTC())
	last4 := utils.CardLast4(form.CardNumber)
	done := true
	patch.PaymentMethodLast4 = &last4
	patch.OnboardingComplete = &done

	synced = true
	if err := p.store.UpdateProfile(sess.Context(ctx), id, patch); err != nil {
		log.WithError(err).WithField("user_id", id).Error("Failed to store onboarding profile")
		synced = false
	}

	if err := sess.Navigate(ViewHome, ""); err != nil {
		return synced, err
	}
	return synced, nil
}
