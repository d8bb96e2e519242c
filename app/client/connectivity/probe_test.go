package connectivity

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialProbe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	probe := NewDialProbe(listener.Addr().String(), time.Second)
	assert.True(t, probe.IsNetworkReachable(context.Background()))

	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	probe = NewDialProbe(addr, 200*time.Millisecond)
	assert.False(t, probe.IsNetworkReachable(context.Background()))
}

type flipProbe struct {
	reachable atomic.Bool
}

func (p *flipProbe) IsNetworkReachable(context.Context) bool {
	return p.reachable.Load()
}

func TestWatchReportsLoss(t *testing.T) {
	probe := &flipProbe{}
	probe.reachable.Store(true)

	var lost atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, probe, 5*time.Millisecond, func() { lost.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), lost.Load())

	probe.reachable.Store(false)
	require.Eventually(t, func() bool { return lost.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), lost.Load())
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).IsNetworkReachable(context.Background()))
	assert.False(t, Static(false).IsNetworkReachable(context.Background()))
}
