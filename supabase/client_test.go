package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)

	_, err = New(Config{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestExecuteBuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "eq.Birthday", r.URL.Query().Get("category"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})

	resp, err := c.From("products").Select("*").Eq("category", "Birthday").Order("created_at", true).Execute(context.Background())
	require.NoError(t, err)
	assert.NoError(t, resp.Error())
}

func TestAccessTokenOverridesAnonBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	_, err := c.From("profiles").Select("*").Execute(ctx)
	require.NoError(t, err)
}

func TestMaybeSingleCollapsesRows(t *testing.T) {
	body := `[]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(body))
	})

	resp, err := c.From("profiles").Select("*").Eq("id", "u1").MaybeSingle().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "null", string(resp.Body))

	body = `[{"id":"u1","onboarding_complete":true}]`
	resp, err = c.From("profiles").Select("*").Eq("id", "u1").MaybeSingle().Execute(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","onboarding_complete":true}`, string(resp.Body))
}

func TestUpsertSetsMergePreference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "id", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	})

	resp, err := c.From("profiles").Upsert("id").ExecuteInsert(context.Background(), map[string]string{"id": "u1"})
	require.NoError(t, err)
	assert.NoError(t, resp.Error())
}

func TestResponseErrorParsesPostgRESTBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"23502","message":"null value in column \"name\"","details":null,"hint":null}`))
	})

	resp, err := c.From("products").ExecuteInsert(context.Background(), map[string]any{})
	require.NoError(t, err)

	var apiErr *APIError
	require.True(t, errors.As(resp.Error(), &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "23502", apiErr.Code)
	assert.Contains(t, apiErr.Message, "null value")
}

func TestResponseErrorWithoutJSONBody(t *testing.T) {
	resp := &Response{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")}

	var apiErr *APIError
	require.True(t, errors.As(resp.Error(), &apiErr))
	assert.Equal(t, "status 502", apiErr.Message)
}
