package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"fabrino-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductsKeepsBothFieldSpellings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
		w.Write([]byte(`[
			{"id":1,"name":"A","price":10,"category":"Birthday","customizable_fields":["Date"]},
			{"id":"b2","name":"B","price":20,"category":"Surprise","customizableFields":["Coordinates"]}
		]`))
	})

	records, err := NewGateway(c).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].RecordID())
	assert.JSONEq(t, `["Date"]`, string(records[0].CustomizableFields))
	assert.Equal(t, "b2", records[1].RecordID())
	assert.JSONEq(t, `["Coordinates"]`, string(records[1].CustomizableFieldsLegacy))
}

func TestListProductsDropsNullRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[null,{"id":3,"name":"C","category":"Anniversary"},null]`))
	})

	records, err := NewGateway(c).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "3", records[0].RecordID())
}

func TestListProductsSurfacesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	_, err := NewGateway(c).ListProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestGetProfileMissingRowIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		w.Write([]byte(`[]`))
	})

	profile, err := NewGateway(c).GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestInsertOrderReturnsGeneratedID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/orders", r.URL.Path)
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))

		var rows []map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "processing", rows[0]["status"])
		assert.NotContains(t, rows[0], "id")
		assert.Nil(t, rows[0]["user_id"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ord-1"}`))
	})

	id, err := NewGateway(c).InsertOrder(context.Background(), models.Order{
		FirstName: "Ada",
		LastName:  "L",
		Address:   "1 Loop",
		Total:     255,
		Status:    models.OrderStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", id)
}

func TestUpsertProfileSendsIDAndMerge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		var row map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &row))
		assert.Equal(t, "u1", row["id"])
		assert.Equal(t, "Ada", row["first_name"])
		assert.NotContains(t, row, "onboarding_complete")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	})

	first := "Ada"
	err := NewGateway(c).UpsertProfile(context.Background(), "u1", models.ProfilePatch{FirstName: &first})
	require.NoError(t, err)
}
