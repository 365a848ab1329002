package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ctx := context.Background()
	assert.NoError(t, PingService(ctx, "http://"+ln.Addr().String(), time.Second))
	assert.NoError(t, PingAuthorizer(ctx, "http://"+ln.Addr().String()))

	addr := ln.Addr().String()
	ln.Close()
	assert.Error(t, PingService(ctx, "http://"+addr, 200*time.Millisecond))
}

func TestPingServiceInvalidURL(t *testing.T) {
	assert.ErrorContains(t, PingService(context.Background(), "not a url", time.Second), "missing host")
	assert.Error(t, PingService(context.Background(), "http://[::1", time.Second))
}
