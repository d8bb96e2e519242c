package connectivity

import (
	"context"
	"debtslayer/app/config"
	"log/slog"
	"net"
	"time"

	"github.com/samber/do"
)

type Probe interface {
	IsNetworkReachable(ctx context.Context) bool
}

// DialProbe considers the network reachable when a TCP connection to the model endpoint succeeds.
type DialProbe struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
}

func New(di *do.Injector) (Probe, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Connectivity.Address == "" {
		return Static(true), nil
	}

	return NewDialProbe(cfg.Connectivity.Address, cfg.Connectivity.Timeout), nil
}

func NewDialProbe(address string, timeout time.Duration) *DialProbe {
	return &DialProbe{
		address: address,
		timeout: timeout,
	}
}

func (p *DialProbe) IsNetworkReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		slog.Debug("Connectivity probe failed", "address", p.address, "error", err)
		return false
	}
	_ = conn.Close()

	return true
}

// Static always reports the same result.
type Static bool

func (s Static) IsNetworkReachable(context.Context) bool {
	return bool(s)
}

// Watch polls the probe and calls onLost every time reachability flips from true to false.
func Watch(ctx context.Context, probe Probe, interval time.Duration, onLost func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reachable := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := probe.IsNetworkReachable(ctx)
		if reachable && !now {
			slog.Warn("Network connectivity lost")
			onLost()
		} else if !reachable && now {
			slog.Info("Network connectivity restored")
		}
		reachable = now
	}
}
