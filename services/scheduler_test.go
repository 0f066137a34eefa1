package services

import (
	"encoding/json"
	"testing"
	"time"

	"fabrino-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(NewCatalogue(nil), testStore(), "every now and then", time.Minute)
	assert.Error(t, err)
}

func TestSchedulerJobs(t *testing.T) {
	lister := &stubLister{records: []models.ProductRecord{{ID: json.RawMessage(`1`), Name: sp("Only")}}}
	catalogue := NewCatalogue(lister)
	sessions := testStore()

	s, err := NewScheduler(catalogue, sessions, "@every 1h", time.Minute)
	require.NoError(t, err)

	s.RefreshCatalogue()
	assert.True(t, catalogue.Live())
	assert.Equal(t, 1, lister.calls)

	now := time.Now()
	sessions.now = func() time.Time { return now }
	sessions.Open("")
	now = now.Add(2 * time.Hour)
	s.SweepSessions()
	assert.Zero(t, sessions.Len())

	s.Start()
	s.Stop()
}
