// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestFilterInvalidHosts(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	tests := []struct {
		name    string
		allowed []string
		host    string
		status  int
	}{
		{
			name:    "wildcard",
			allowed: []string{"*"},
			host:    "example.com",
			status:  http.StatusOK,
		},
		{
			name:    "allowed name",
			allowed: []string{"LocalHost"},
			host:    "localhost:9650",
			status:  http.StatusOK,
		},
		{
			name:    "ip",
			allowed: []string{"localhost"},
			host:    "127.0.0.1:9650",
			status:  http.StatusOK,
		},
		{
			name:    "rejected name",
			allowed: []string{"localhost"},
			host:    "example.com",
			status:  http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			w := httptest.NewRecorder()
			filterInvalidHosts(ok, tt.allowed).ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouterDuplicate(t *testing.T) {
	r := newRouter()
	require.NoError(t, r.AddRoute("/a", http.NotFoundHandler()))
	require.ErrorIs(t, r.AddRoute("/a", http.NotFoundHandler()), ErrDuplicateRoute)
}

func TestServer(t *testing.T) {
	require := require.New(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	s := New("", logging.NoLog{}, listener, NewDefaultHTTPConfig(), []string{"*"}, []string{"localhost"}, time.Second)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "hits", Help: "hits"})
	counter.Inc()
	registry := prometheus.NewRegistry()
	require.NoError(registry.Register(counter))
	require.NoError(s.AddRoute(NewMetricsHandler(registry), MetricsEndpoint))

	done := make(chan error, 1)
	go func() {
		done <- s.Dispatch()
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + MetricsEndpoint)
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Contains(string(body), "hits 1")

	resp, err = http.Get("http://" + listener.Addr().String() + "/missing")
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusNotFound, resp.StatusCode)

	require.NoError(s.Shutdown())
	require.NoError(<-done)
}
