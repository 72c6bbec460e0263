// Package gateway opens and supervises the bot's gateway shards and merges
// their events into a single stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/lighthouse/pkg/retrylimit"
)

// Event is one gateway payload tagged with the shard that received it.
type Event struct {
	ShardID int
	Payload interface{}
}

// Shard is the subset of *discordgo.Session a shard needs.
type Shard interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
}

// Dialer creates the session for one shard without connecting it.
type Dialer func(shardID, shardCount int) (Shard, error)

// GatewayInfo reports the recommended shard count and session start limits.
type GatewayInfo interface {
	GatewayBot(options ...discordgo.RequestOption) (*discordgo.GatewayBotResponse, error)
}

var ErrClosed = errors.New("gateway closed")

type Options struct {
	Token string

	// ShardCount is the number of shards to run. Zero asks the API.
	ShardCount int
	// IdentifyInterval spaces out shard identifies.
	IdentifyInterval time.Duration
	Intents          discordgo.Intent
	// EventBuffer is the capacity of the merged event channel.
	EventBuffer int
	Retry       retrylimit.Config

	Dial Dialer
	Info GatewayInfo
}

// Manager owns every shard session plus a REST-only client.
type Manager struct {
	opts   Options
	logger *zap.Logger
	client *discordgo.Session

	events    chan Event
	done      chan struct{}
	closeDone sync.Once

	mu       sync.RWMutex
	closed   bool
	shards   []Shard
	removers []func()
}

func New(opts Options, logger *zap.Logger) (*Manager, error) {
	client, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord client: %w", err)
	}
	if opts.Intents == 0 {
		opts.Intents = discordgo.IntentsGuilds
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retrylimit.DefaultConfig()
	}
	if opts.Info == nil {
		opts.Info = client
	}

	m := &Manager{
		opts:   opts,
		logger: logger,
		client: client,
		events: make(chan Event, opts.EventBuffer),
		done:   make(chan struct{}),
	}
	if m.opts.Dial == nil {
		m.opts.Dial = m.dial
	}
	return m, nil
}

// Client returns the REST client. It is never connected to the gateway.
func (m *Manager) Client() *discordgo.Session { return m.client }

// Events is closed by Close once no shard can deliver anymore.
func (m *Manager) Events() <-chan Event { return m.events }

// ShardCount returns the number of open shards.
func (m *Manager) ShardCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shards)
}

func (m *Manager) dial(shardID, shardCount int) (Shard, error) {
	s, err := discordgo.New("Bot " + m.opts.Token)
	if err != nil {
		return nil, err
	}
	s.ShardID = shardID
	s.ShardCount = shardCount
	s.Identify.Intents = m.opts.Intents
	// Handlers run on the reader goroutine, keeping events ordered per shard.
	s.SyncEvents = true
	return s, nil
}

// Open connects every shard. Identifies are paced by IdentifyInterval and
// each shard's Open is retried per Options.Retry. If any shard fails, every
// opened shard is closed again.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	count, concurrency, err := m.plan(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("Opening shards", zap.Int("shards", count), zap.Int("max_concurrency", concurrency))

	pacer := retrylimit.NewPacer(m.opts.IdentifyInterval, concurrency)
	shards := make([]Shard, count)
	removers := make([]func(), count)

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < count; id++ {
		g.Go(func() error {
			s, err := m.opts.Dial(id, count)
			if err != nil {
				return fmt.Errorf("shard %d: %w", id, err)
			}
			shards[id] = s
			removers[id] = s.AddHandler(m.forward(id))

			retry := m.opts.Retry
			retry.OnRetry = func(attempt int, err error, wait time.Duration) {
				m.logger.Warn("Shard failed to open, retrying",
					zap.Int("shard", id), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
			}
			err = retrylimit.Do(gctx, retry, func(ctx context.Context) error {
				if err := pacer.Wait(ctx); err != nil {
					return retrylimit.Fatal(err)
				}
				return s.Open()
			})
			if err != nil {
				return fmt.Errorf("open shard %d: %w", id, err)
			}
			m.logger.Info("Shard connected", zap.Int("shard", id), zap.Int("shards", count))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.closeShards(shards, removers)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.closeShards(shards, removers)
		return ErrClosed
	}
	m.shards = shards
	m.removers = removers
	return nil
}

func (m *Manager) plan(ctx context.Context) (count, concurrency int, err error) {
	if m.opts.ShardCount > 0 {
		return m.opts.ShardCount, 1, nil
	}

	info, err := m.opts.Info.GatewayBot(discordgo.WithContext(ctx))
	if err != nil {
		return 0, 0, fmt.Errorf("fetch recommended shard count: %w", err)
	}
	count = max(info.Shards, 1)
	concurrency = max(info.SessionStartLimit.MaxConcurrency, 1)

	if info.SessionStartLimit.Remaining < count {
		reset := time.Duration(info.SessionStartLimit.ResetAfter) * time.Millisecond
		return 0, 0, fmt.Errorf("session start limit exhausted: %d remaining, %d needed, resets in %s",
			info.SessionStartLimit.Remaining, count, reset)
	}
	return count, concurrency, nil
}

func (m *Manager) forward(shardID int) func(*discordgo.Session, interface{}) {
	return func(_ *discordgo.Session, payload interface{}) {
		// Every dispatch also arrives as its typed struct.
		if _, raw := payload.(*discordgo.Event); raw {
			return
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		if m.closed {
			return
		}
		select {
		case m.events <- Event{ShardID: shardID, Payload: payload}:
		case <-m.done:
		}
	}
}

// Close disconnects every shard and closes the event stream. It is safe to
// call more than once.
func (m *Manager) Close() error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil
	}

	// Unblock forwarders waiting on a full channel before taking the write lock.
	m.closeDone.Do(func() { close(m.done) })

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	shards, removers := m.shards, m.removers
	m.shards, m.removers = nil, nil
	close(m.events)
	m.mu.Unlock()

	return m.closeShards(shards, removers)
}

func (m *Manager) closeShards(shards []Shard, removers []func()) error {
	var errs []error
	for id, s := range shards {
		if s == nil {
			continue
		}
		if removers[id] != nil {
			removers[id]()
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close shard %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
