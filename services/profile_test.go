package services

import (
	"context"
	"errors"
	"testing"

	"fabrino-server/models"
	"fabrino-server/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(userID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockProfileStore) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	return m.Called(userID, patch).Error(0)
}

func (m *mockProfileStore) UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	return m.Called(userID, patch).Error(0)
}

func signedInSession(t *testing.T) *Session {
	t.Helper()
	sess, _ := testStore().Open("")
	sess.SetIdentity(&supabase.User{ID: "u1"}, "jwt")
	return sess
}

var adaContact = models.ContactDetails{
	FirstName:  "Ada",
	LastName:   "Lovelace",
	Address:    "12 Analytical St",
	City:       "London",
	PostalCode: "N1",
	Phone:      "+44 20 0000",
}

func TestProfileNeedsSignedInUser(t *testing.T) {
	sess, _ := testStore().Open("")
	_, err := NewProfileService(new(mockProfileStore)).Get(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = NewProfileService(nil).Get(context.Background(), sess)
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestProfileGetMissingIsNil(t *testing.T) {
	store := new(mockProfileStore)
	store.On("GetProfile", "u1").Return(nil, nil)

	p, err := NewProfileService(store).Get(context.Background(), signedInSession(t))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileSaveUpsertsContact(t *testing.T) {
	store := new(mockProfileStore)
	store.On("UpsertProfile", "u1", mock.MatchedBy(func(p models.ProfilePatch) bool {
		return *p.FirstName == "Ada" && *p.Phone == "+44 20 0000" && p.UpdatedAt != nil &&
			p.OnboardingComplete == nil && p.PaymentMethodLast4 == nil
	})).Return(nil)

	require.NoError(t, NewProfileService(store).Save(context.Background(), signedInSession(t), adaContact))
	store.AssertExpectations(t)
}

func TestProfileSaveSurfacesErrors(t *testing.T) {
	store := new(mockProfileStore)
	store.On("UpsertProfile", "u1", mock.Anything).Return(errors.New("rls"))

	err := NewProfileService(store).Save(context.Background(), signedInSession(t), adaContact)
	assert.ErrorContains(t, err, "rls")
}

func TestOnboardingStoresLast4AndGoesHome(t *testing.T) {
	store := new(mockProfileStore)
	store.On("UpdateProfile", "u1", mock.MatchedBy(func(p models.ProfilePatch) bool {
		return *p.PaymentMethodLast4 == "4242" && *p.OnboardingComplete && *p.City == "London"
	})).Return(nil)

	sess := signedInSession(t)
	require.NoError(t, sess.Navigate(ViewSetup, ""))

	synced, err := NewProfileService(store).CompleteOnboarding(context.Background(), sess, OnboardingForm{
		ContactDetails: adaContact,
		CardNumber:     "4242 4242 4242 4242",
		Expiry:         "12/30",
		CVC:            "123",
	})
	require.NoError(t, err)
	assert.True(t, synced)
	assert.Equal(t, ViewHome, sess.View())
}

func TestOnboardingCompletesEvenWhenWriteFails(t *testing.T) {
	store := new(mockProfileStore)
	store.On("UpdateProfile", "u1", mock.Anything).Return(errors.New("offline"))

	sess := signedInSession(t)
	require.NoError(t, sess.Navigate(ViewSetup, ""))

	synced, err := NewProfileService(store).CompleteOnboarding(context.Background(), sess, OnboardingForm{ContactDetails: adaContact, CardNumber: "4111111111111111"})
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, ViewHome, sess.View())
}
