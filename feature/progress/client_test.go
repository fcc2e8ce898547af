package progress_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sidecar-sync/feature/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.Handler) *progress.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := progress.NewClient(progress.Config{
		Server:   srv.URL,
		Username: "reader",
		Password: "hunter2",
	})
	require.NoError(t, err)
	return client
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Healthcheck(context.Background()))

	assert.Equal(t, "application/vnd.koreader.v1+json", got.Get("accept"))
	assert.Equal(t, "reader", got.Get("x-auth-user"))
	// The password goes over the wire as its MD5 digest, never in clear.
	assert.Equal(t, "2ab96390c7dbe3439de74d0c9b0b1767", got.Get("x-auth-key"))
}

func TestAuthorizeRejected(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Authorize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGetProgress(t *testing.T) {
	const digest = "0d6e7827616ec9bccda1ac51fab1a9b7"

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/syncs/progress/"+digest, r.URL.Path)
		json.NewEncoder(w).Encode(progress.Document{
			Document:   digest,
			Percentage: 0.42,
			Progress:   "/body/DocFragment[8]/body/p[10]/text().0",
			Device:     "kobo",
		})
	}))

	doc, ok, err := client.GetProgress(context.Background(), digest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.42, doc.Percentage, 1e-9)
	assert.Equal(t, "kobo", doc.Device)
}

func TestGetProgressNoRecord(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The reference server answers an unknown digest with an empty object.
		w.Write([]byte("{}"))
	}))

	doc, ok, err := client.GetProgress(context.Background(), "ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestGetProgressServerError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, _, err := client.GetProgress(context.Background(), "ffffffffffffffffffffffffffffffff")
	assert.Error(t, err)
}

func TestUpdateProgress(t *testing.T) {
	var calls int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/syncs/progress", r.URL.Path)

		var doc progress.Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "0d6e7827616ec9bccda1ac51fab1a9b7", doc.Document)
		assert.InDelta(t, 0.5, doc.Percentage, 1e-9)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UpdateProgress(context.Background(), &progress.Document{
		Document:   "0d6e7827616ec9bccda1ac51fab1a9b7",
		Percentage: 0.5,
		Device:     "sidecar-sync",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
