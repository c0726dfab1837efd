package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyquest/internal/profile"
	"github.com/hrygo/studyquest/store/test"
)

func TestServerServesAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := test.NewTestingStore(ctx, t)
	p := &profile.Profile{Mode: "dev", Secret: "s", SessionTTL: time.Hour, RateLimitPerSecond: 5, RateLimitBurst: 10}
	s, err := NewServer(ctx, p, ts)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/api/v1/modes"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && len(body) > 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, s.cleanup.IsRunning())
}
