package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/contacts/pkg/logging"
)

type fakeServer struct {
	stopped chan struct{}
}

func newFakeServer() *fakeServer { return &fakeServer{stopped: make(chan struct{})} }

func (s *fakeServer) Start(string) error {
	<-s.stopped
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	close(s.stopped)
	return nil
}

func TestServeUntil_StartFailureReturnsError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	var closed []string
	closers := []closer{
		{"first", func(context.Context) error { closed = append(closed, "first"); return nil }},
		{"second", func(context.Context) error { closed = append(closed, "second"); return nil }},
	}

	done := make(chan error, 1)
	go func() {
		done <- serveUntil(context.Background(), logging.Discard(), e, ln.Addr().String(), closers)
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, []string{"first", "second"}, closed)
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntil did not return after the listener failed")
	}
}

func TestServeUntil_ContextDoneShutsDown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv := newFakeServer()

	var closed int
	closers := []closer{{"pool", func(context.Context) error { closed++; return nil }}}

	done := make(chan error, 1)
	go func() {
		done <- serveUntil(ctx, logging.Discard(), srv, ":0", closers)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, 1, closed)
		_, open := <-srv.stopped
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntil did not return after cancel")
	}
}
