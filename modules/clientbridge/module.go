// Package clientbridge connects the engine to a live game client over
// socket.io. The client pushes domain events (party_wipe, player_death,
// player_stuck) and periodic status frames; the bridge caches the status
// for the recovery monitor and queues the events so the single-threaded
// driver can emit them on the bus between ticks.
package clientbridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/phasebot/internal/ctxlog"
	"github.com/vk/phasebot/internal/events"
)

// Options configures a bridge connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool

	// ConnectTimeout bounds the initial handshake. Zero means 15s.
	ConnectTimeout time.Duration
}

// Bridge is a connected client session. Socket callbacks run on the
// library's goroutines; all shared state is behind the mutex or atomics,
// and nothing touches the program directly.
type Bridge struct {
	logger *slog.Logger
	io     *socket.Socket

	alive atomic.Bool
	valid atomic.Bool

	mu    sync.Mutex
	queue []events.Event
}

// Dial connects to the client endpoint and subscribes to its event stream.
func Dial(ctx context.Context, opts Options) (*Bridge, error) {
	logger := ctxlog.FromContext(ctx).With("bridge", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bridge URL: %w", err)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	b := &Bridge{logger: logger, io: io}
	// Until the first status frame arrives, assume a live, valid world.
	b.alive.Store(true)
	b.valid.Store(true)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to client.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		connectChan <- err
	})

	b.subscribe()
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("client bridge connection failed: %w", err)
		}
		return b, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for client bridge connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for client bridge connection", timeout)
	}
}

func (b *Bridge) subscribe() {
	forward := func(e events.Event) func(...any) {
		return func(...any) {
			b.logger.Debug("Client event received.", "event", string(e))
			if e == events.PartyWipe || e == events.PlayerDeath {
				b.alive.Store(false)
			}
			b.enqueue(e)
		}
	}
	b.io.On(types.EventName(string(events.PartyWipe)), forward(events.PartyWipe))
	b.io.On(types.EventName(string(events.PlayerDeath)), forward(events.PlayerDeath))
	b.io.On(types.EventName(string(events.PlayerStuck)), forward(events.PlayerStuck))

	b.io.On(types.EventName("status"), func(data ...any) {
		if len(data) == 0 {
			return
		}
		frame, ok := data[0].(map[string]any)
		if !ok {
			b.logger.Warn("Malformed status frame, ignoring.")
			return
		}
		if v, ok := frame["player_alive"].(bool); ok {
			b.alive.Store(v)
		}
		if v, ok := frame["world_valid"].(bool); ok {
			b.valid.Store(v)
		}
	})

	b.io.On(types.EventName("disconnect"), func(...any) {
		b.logger.Warn("Client bridge disconnected.")
		b.valid.Store(false)
	})
}

func (b *Bridge) enqueue(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, e)
}

// Drain returns the queued events and clears the queue. The driver calls it
// once per tick and emits each event on the bus before advancing the program.
func (b *Bridge) Drain() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// PlayerAlive reports the cached liveness from the client's status frames.
func (b *Bridge) PlayerAlive() bool { return b.alive.Load() }

// WorldValid reports the cached environment validity.
func (b *Bridge) WorldValid() bool { return b.valid.Load() }

// Close tears the session down.
func (b *Bridge) Close() {
	if b.io != nil {
		b.logger.Debug("Disconnecting client bridge.")
		b.io.Disconnect()
	}
}
