package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/store"
	"bitor-console/internal/types"
)

const pollTimeout = 30 * time.Second

// MessageSource lists messages for a user
type MessageSource interface {
	ListUserMessages(ctx context.Context, userID string, unreadOnly bool) ([]types.UserMessage, error)
}

// Sink receives fetched messages
type Sink interface {
	Notify(ctx context.Context, msg types.UserMessage) (bool, error)
}

// Poller periodically fetches unread messages while auto refresh is on
type Poller struct {
	cron            *cron.Cron
	source          MessageSource
	sink            Sink
	userID          string
	defaultInterval time.Duration
	logger          *slog.Logger

	mu          sync.Mutex
	running     bool
	entryID     cron.EntryID
	interval    time.Duration
	unsubscribe store.Unsubscriber
}

// NewPoller creates a poller. defaultInterval is used when auto refresh is
// on but no positive refresh interval is set.
func NewPoller(source MessageSource, sink Sink, userID string, defaultInterval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		cron:            cron.New(),
		source:          source,
		sink:            sink,
		userID:          userID,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
}

// Start starts the scheduler and follows settings changes
func (p *Poller) Start(settings store.Readable[*types.AppSettings]) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	p.cron.Start()
	unsubscribe := settings.Subscribe(p.apply)

	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	p.logger.Info("auto refresh poller started", "user_id", p.userID)
	return nil
}

// Stop stops following settings and waits for a running poll to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	ctx := p.cron.Stop()
	<-ctx.Done()

	p.mu.Lock()
	p.removeLocked()
	p.mu.Unlock()

	p.logger.Info("auto refresh poller stopped")
}

// Interval returns the active polling period, or 0 when disabled
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// IntervalFor returns the polling period implied by s, or 0 when auto
// refresh is off
func (p *Poller) IntervalFor(s *types.AppSettings) time.Duration {
	if !s.AutoRefreshEnabled() {
		return 0
	}
	if s.RefreshInterval == nil || *s.RefreshInterval <= 0 {
		return p.defaultInterval
	}
	return time.Duration(*s.RefreshInterval) * time.Second
}

func (p *Poller) apply(s *types.AppSettings) {
	interval := p.IntervalFor(s)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || interval == p.interval {
		return
	}
	p.removeLocked()

	if interval == 0 {
		p.logger.Info("auto refresh disabled")
		return
	}

	entryID, err := p.cron.AddFunc(fmt.Sprintf("@every %s", interval), p.poll)
	if err != nil {
		p.logger.Error("failed to schedule auto refresh", "error", err, "interval", interval)
		return
	}
	p.entryID = entryID
	p.interval = interval

	p.logger.Info("auto refresh scheduled", "interval", interval)
}

func (p *Poller) removeLocked() {
	if p.interval == 0 {
		return
	}
	p.cron.Remove(p.entryID)
	p.entryID = 0
	p.interval = 0
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Warn("auto refresh failed", "error", err, "retryable", apperrors.IsRetryable(err))
	}
}

// RunOnce fetches unread messages and hands each to the sink. It returns
// how many the sink delivered.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	msgs, err := p.source.ListUserMessages(ctx, p.userID, true)
	if err != nil {
		return 0, fmt.Errorf("fetch messages: %w", err)
	}

	delivered := 0
	var firstErr error
	for _, msg := range msgs {
		sent, err := p.sink.Notify(ctx, msg)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deliver message %s: %w", msg.ID, err)
			}
			continue
		}
		if sent {
			delivered++
		}
	}

	p.logger.Debug("auto refresh complete", "fetched", len(msgs), "delivered", delivered)
	return delivered, firstErr
}
