package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/pkg/forge"
)

func TestHTTPRequestAction_GETParsesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	a := NewHTTPRequestAction(HTTPConfig{})
	resp, err := a.RunAction(forge.ActionContext{
		Ctx: context.Background(),
		Input: map[string]any{
			"url":    srv.URL,
			"method": "GET",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp["status_code"])
	body, ok := resp["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["ok"])
}

func TestHTTPRequestAction_MissingURLIsValidationError(t *testing.T) {
	a := NewHTTPRequestAction(HTTPConfig{})
	_, err := a.RunAction(forge.ActionContext{Ctx: context.Background(), Input: map[string]any{}})
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestHTTPRequestAction_InvalidSchemeIsValidationError(t *testing.T) {
	a := NewHTTPRequestAction(HTTPConfig{})
	_, err := a.RunAction(forge.ActionContext{Ctx: context.Background(), Input: map[string]any{"url": "ftp://example.com"}})
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeValidation, fe.Code)
}

func TestHTTPRequestAction_FailOnErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPRequestAction(HTTPConfig{})
	_, err := a.RunAction(forge.ActionContext{
		Ctx: context.Background(),
		Input: map[string]any{
			"url":                  srv.URL,
			"fail_on_error_status": true,
		},
	})
	fe, ok := err.(*forge.ForgeError)
	require.True(t, ok)
	assert.Equal(t, forge.ErrCodeFailed, fe.Code)
}

func TestHTTPGetAction_ForcesGETMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPGetAction(HTTPConfig{})
	_, err := a.RunAction(forge.ActionContext{Ctx: context.Background(), Input: map[string]any{"url": srv.URL, "method": "POST"}})
	require.NoError(t, err)
	assert.Equal(t, "GET", gotMethod)
}

func TestHTTPPostAction_SendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPPostAction(HTTPConfig{})
	_, err := a.RunAction(forge.ActionContext{
		Ctx: context.Background(),
		Input: map[string]any{
			"url":  srv.URL,
			"body": map[string]any{"name": "alice"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", gotBody["name"])
}
