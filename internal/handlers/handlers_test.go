package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/handlers"
	"github.com/parley-chat/parley/internal/store"
)

func newTestRouter() (http.Handler, *store.MemoryStore) {
	st := store.NewMemoryStore()
	registry := chat.NewRegistry(st, zerolog.Nop())
	h := handlers.NewHandler(registry, chat.NewMessageLog(st), st)
	return api.NewRouter(zerolog.Nop(), h, nil), st
}

func doJSON(t *testing.T, router http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("user", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, router http.Handler, name string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/participants", "", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterParticipant(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/participants", "", `{"name":"Alice"}`)
	req.Equal(http.StatusCreated, rec.Code)

	var resp handlers.ParticipantResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal("Alice", resp.Name)
	req.NotZero(resp.LastStatus)
	req.NotEmpty(resp.ID)
}

func TestRegisterParticipantDuplicate(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()

	register(t, router, "Alice")
	rec := doJSON(t, router, http.MethodPost, "/participants", "", `{"name":"Alice"}`)
	req.Equal(http.StatusConflict, rec.Code)
}

func TestRegisterParticipantValidation(t *testing.T) {
	router, _ := newTestRouter()

	cases := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":""}`},
		{"missing name", `{}`},
		{"non-text name", `{"name":123}`},
		{"malformed body", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/participants", "", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestListParticipantsEmptyIsJSONArray(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/participants", "", "")
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("[]", strings.TrimSpace(rec.Body.String()))
}

func TestListParticipantsAfterRegistration(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	register(t, router, "Alice")

	rec := doJSON(t, router, http.MethodGet, "/participants", "", "")
	req.Equal(http.StatusOK, rec.Code)

	var resp []handlers.ParticipantResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Len(resp, 1)
	req.Equal("Alice", resp[0].Name)
}

func TestPostMessageRequiresUserHeader(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/messages", "", `{"to":"Todos","text":"hi","type":"message"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPostMessageUnknownSender(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/messages", "Mallory", `{"to":"Todos","text":"hi","type":"message"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPostMessageValidation(t *testing.T) {
	router, _ := newTestRouter()
	register(t, router, "Alice")

	cases := []struct {
		name string
		body string
	}{
		{"missing to", `{"text":"hi","type":"message"}`},
		{"missing text", `{"to":"Todos","type":"message"}`},
		{"status type", `{"to":"Todos","text":"hi","type":"status"}`},
		{"unknown type", `{"to":"Todos","text":"hi","type":"shout"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/messages", "Alice", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestMessageVisibilityOverHTTP(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	register(t, router, "Alice")
	register(t, router, "Bob")
	register(t, router, "Carol")

	rec := doJSON(t, router, http.MethodPost, "/messages", "Alice", `{"to":"Bob","text":"secret","type":"private_message"}`)
	req.Equal(http.StatusCreated, rec.Code)

	sees := func(user string) bool {
		rec := doJSON(t, router, http.MethodGet, "/messages?limit=100", user, "")
		req.Equal(http.StatusOK, rec.Code)
		var msgs []handlers.MessageResponse
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &msgs))
		for _, m := range msgs {
			if m.Text == "secret" {
				return true
			}
		}
		return false
	}

	req.True(sees("Alice"))
	req.True(sees("Bob"))
	req.False(sees("Carol"))
}

func TestListMessagesLimitValidation(t *testing.T) {
	router, _ := newTestRouter()

	for _, query := range []string{"", "?limit=0", "?limit=-1", "?limit=abc"} {
		rec := doJSON(t, router, http.MethodGet, "/messages"+query, "Alice", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "query %q", query)
	}
}

func TestRefreshStatus(t *testing.T) {
	req := require.New(t)
	router, st := newTestRouter()
	register(t, router, "Alice")

	before, err := st.GetParticipant(context.Background(), "Alice")
	req.NoError(err)

	rec := doJSON(t, router, http.MethodPost, "/status", "Alice", "")
	req.Equal(http.StatusOK, rec.Code)

	after, err := st.GetParticipant(context.Background(), "Alice")
	req.NoError(err)
	req.False(after.LastStatus.Before(before.LastStatus))
}

func TestRefreshStatusMissingHeaderOrUnknownUser(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/status", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/status", "nobody", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", "", "")
	req.Equal(http.StatusOK, rec.Code)

	var resp handlers.HealthResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal("healthy", resp.Status)
	req.Equal("pass", resp.Checks["store"].Status)
}
