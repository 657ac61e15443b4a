package app

import (
	"context"
	"time"
)

// Ticker is the part of *time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker is the production ticker factory.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// countdown ticks once per second for one round. It never blocks on stop so
// that it can be cancelled from inside its own tick callback.
type countdown struct {
	token  string
	cancel context.CancelFunc
	done   chan struct{}
}

func startCountdown(parent context.Context, token string, ticker Ticker, onTick func(token string)) *countdown {
	ctx, cancel := context.WithCancel(parent)
	cd := &countdown{token: token, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(cd.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if ctx.Err() != nil {
					return
				}
				onTick(token)
			}
		}
	}()
	return cd
}

func (c *countdown) stop() {
	if c != nil {
		c.cancel()
	}
}
