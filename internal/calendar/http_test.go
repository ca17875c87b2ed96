package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPBackend_Validates(t *testing.T) {
	_, err := NewHTTPBackend(" ", "team")
	require.Error(t, err)

	_, err = NewHTTPBackend("http://example.invalid/calendar.php", "")
	require.Error(t, err)
}

func TestHTTPBackend_ListDecodesMixedIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "team_x", r.URL.Query().Get("calenderid"))
		require.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		_, _ = io.WriteString(w, `[
			{"id": 7, "title": "Standup", "start_time": "2026-10-20T09:00", "end_time": "2026-10-20T09:15", "location": "Room 1"},
			{"id": "abc", "title": "Lunch", "start_time": "2026-10-20T12:00", "end_time": "2026-10-20T13:00", "location": ""}
		]`)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, "team_x")
	require.NoError(t, err)

	list, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ID("7"), list[0].ID)
	require.Equal(t, ID("abc"), list[1].ID)
	require.Equal(t, "2026-10-20", list[0].Date())
	require.Equal(t, "09:00", list[0].Clock())
}

func TestHTTPBackend_ListNonArrayIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"no entries"}`)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, "team_x")
	require.NoError(t, err)

	list, err := b.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestHTTPBackend_CreatePostsJSONWithoutID(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "team_x", r.URL.Query().Get("calenderid"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, "team_x")
	require.NoError(t, err)

	err = b.Create(context.Background(), Appointment{
		ID:          "old",
		Title:       "Dentist",
		Description: "Voice Entry",
		StartTime:   "2026-10-20T10:00",
		EndTime:     "2026-10-20T11:00",
		Location:    "Clinic",
	})
	require.NoError(t, err)
	require.NotContains(t, got, "id")
	require.Equal(t, "Dentist", got["title"])
	require.Equal(t, "2026-10-20T10:00", got["start_time"])
	require.Equal(t, "Clinic", got["location"])
}

func TestHTTPBackend_DeleteSendsIDAndSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "team_x", r.URL.Query().Get("calenderid"))
		if r.URL.Query().Get("id") == "42" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "unknown id", http.StatusNotFound)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, "team_x")
	require.NoError(t, err)

	require.NoError(t, b.Delete(context.Background(), "42"))

	err = b.Delete(context.Background(), "9")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())

	require.Error(t, b.Delete(context.Background(), ""))
}
