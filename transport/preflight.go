package transport

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const preflightTimeout = 3 * time.Second

// preflightProbe pings the target host once before the transfer starts, so
// an unreachable receiver fails immediately instead of hanging until the
// HTTP timeout. Uses unprivileged UDP ping.
func preflightProbe(ctx context.Context, host string) error {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return fmt.Errorf("preflight: %v", err)
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = preflightTimeout
	if err := pinger.RunWithContext(ctx); err != nil {
		return fmt.Errorf("preflight: %v", err)
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return fmt.Errorf("preflight: host %s unreachable", host)
	}
	return nil
}
