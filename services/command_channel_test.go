package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPatchesPendingCommand(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewHTTPCommandChannel(srv.URL+"/api/v1/", "system-secret", time.Second)
	err := channel.Push(context.Background(), "A113", `{"action":"relay_on"}`)
	require.NoError(t, err)

	require.Equal(t, "/api/v1/devices/A113", gotPath)
	require.Equal(t, "Token system-secret", gotAuth)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(gotBody, &body))
	require.JSONEq(t, `{"action":"relay_on"}`, string(body["pending_command"]))
}

func TestPushRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	channel := NewHTTPCommandChannel(srv.URL, "system-secret", time.Second)
	err := channel.Push(context.Background(), "ghost", `{"action":"noop"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestPushHonorsContextDeadline(t *testing.T) {
	var served atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Store(true)
		<-r.Context().Done()
	}))
	defer srv.Close()

	channel := NewHTTPCommandChannel(srv.URL, "system-secret", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := channel.Push(ctx, "A113", `{"action":"relay_on"}`)
	require.Error(t, err)
	require.True(t, served.Load())
}

func TestPushEscapesDeviceIdentifier(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewHTTPCommandChannel(srv.URL, "system-secret", time.Second)
	require.NoError(t, channel.Push(context.Background(), "lab/unit 7", `{"action":"noop"}`))
	require.Equal(t, "/devices/lab%2Funit%207", gotPath)
}
