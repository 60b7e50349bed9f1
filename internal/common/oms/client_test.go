package oms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/popcon/internal/common/poperrors"
)

func TestClient_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fills", r.URL.Path)
		assert.Equal(t, "8000", r.URL.Query().Get("filter[fill_number][EQ]"))
		_, _ = w.Write([]byte(fillsResponse))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseUrl: server.URL + "/api"})
	result, err := client.Execute(context.Background(), NewQuery("fills").FilterEQ("fill_number", 8000))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Len())
}

func TestClient_Execute_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseUrl: server.URL, Attempts: 3, RetryDelay: time.Millisecond})
	result, err := client.Execute(context.Background(), NewQuery("fills"))
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Execute_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad filter", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseUrl: server.URL, Attempts: 3, RetryDelay: time.Millisecond})
	_, err := client.Execute(context.Background(), NewQuery("fills"))
	var queryFailed *poperrors.ErrQueryFailed
	require.True(t, errors.As(err, &queryFailed))
	assert.Equal(t, http.StatusBadRequest, queryFailed.Status)
	assert.Equal(t, "fills", queryFailed.Resource)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Execute_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := NewClient(ClientConfig{BaseUrl: server.URL}).Execute(context.Background(), NewQuery("fills"))
	assert.True(t, poperrors.IsQueryFailed(err))
}

func TestClient_Execute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseUrl: server.URL, Timeout: 10 * time.Millisecond})
	_, err := client.Execute(context.Background(), NewQuery("fills"))
	assert.True(t, poperrors.IsQueryFailed(err))
}
