// Package scheduler maintains one polling timer per SFTP partner. Every
// partner or settings write triggers RefreshSchedules, which rebuilds the
// whole timer set from current configuration; the refresh is total and
// idempotent, so callers never reason about deltas.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/robfig/cron/v3"

	"github.com/Ramsey-B/sedge/internal/repositories/partner"
	"github.com/Ramsey-B/sedge/internal/repositories/settings"
	"github.com/Ramsey-B/sedge/pkg/exchange"
	"github.com/Ramsey-B/sedge/pkg/formats"
	"github.com/Ramsey-B/sedge/pkg/models"
	redislock "github.com/Ramsey-B/sedge/pkg/redis"
	"github.com/Ramsey-B/sedge/pkg/transport"
)

// lockTTL bounds how long a crashed instance can block a partner's polls.
const lockTTL = 10 * time.Minute

// Clock abstracts time so tests can fire ticks deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// TickLocker serializes ticks for one partner across instances.
type TickLocker interface {
	WithPollLock(ctx context.Context, partnerID string, ttl time.Duration, fn func() error) error
}

// Poller retrieves and archives remote inbox files.
type Poller interface {
	Poll(ctx context.Context, p *models.TradingPartner) ([]transport.PolledFile, error)
	Archive(ctx context.Context, p *models.TradingPartner, filename string) error
}

// InboundSink receives each polled file; backed by the exchange service.
type InboundSink interface {
	CreateInbound(ctx context.Context, tenantID string, req exchange.InboundRequest) (models.EdiTransaction, error)
}

type entry struct {
	partner  models.TradingPartner
	schedule cron.Schedule
	stop     chan struct{}
	running  bool
	mu       sync.Mutex
}

type Scheduler struct {
	partners partner.PartnerRepository
	settings settings.SettingsRepository
	locker   TickLocker
	poller   Poller
	sink     InboundSink
	clock    Clock
	logger   ectologger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

func NewScheduler(
	partners partner.PartnerRepository,
	settingsRepo settings.SettingsRepository,
	locker TickLocker,
	poller Poller,
	sink InboundSink,
	clock Clock,
	logger ectologger.Logger,
) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{
		partners: partners,
		settings: settingsRepo,
		locker:   locker,
		poller:   poller,
		sink:     sink,
		clock:    clock,
		logger:   logger,
		entries:  map[string]*entry{},
	}
}

// RefreshSchedules rebuilds the timer set: every existing timer stops,
// then one timer starts per currently eligible partner (SFTP method,
// active, non-empty schedule, tenant polling enabled). Calling it twice
// in a row yields the same timer set, so every partner or settings write
// can trigger it unconditionally.
func (s *Scheduler) RefreshSchedules(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		close(e.stop)
	}
	s.entries = map[string]*entry{}

	pollable, err := s.partners.ListPollable(ctx)
	if err != nil {
		return err
	}

	pollingEnabled := map[string]bool{}
	for _, p := range pollable {
		enabled, seen := pollingEnabled[p.TenantID]
		if !seen {
			cfg, err := s.settings.Get(ctx, p.TenantID)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).WithField("tenant_id", p.TenantID).
					Warn("skipping partner: cannot load tenant settings")
				continue
			}
			enabled = cfg.SFTPPollingEnabled
			pollingEnabled[p.TenantID] = enabled
		}
		if !enabled {
			continue
		}

		schedule, err := cron.ParseStandard(p.SFTP.PollSchedule)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"partner":       p.Code,
				"poll_schedule": p.SFTP.PollSchedule,
			}).Warn("skipping partner: invalid poll schedule")
			continue
		}

		e := &entry{partner: p, schedule: schedule, stop: make(chan struct{})}
		s.entries[p.ID] = e
		s.wg.Add(1)
		go s.run(e)
	}

	s.logger.WithContext(ctx).Infof("Polling schedules refreshed: %d partner(s)", len(s.entries))
	return nil
}

// Stop halts all timers and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, e := range s.entries {
		close(e.stop)
	}
	s.entries = map[string]*entry{}
	s.mu.Unlock()
	s.wg.Wait()
}

// ScheduledPartnerIDs reports which partners currently hold a timer.
func (s *Scheduler) ScheduledPartnerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) run(e *entry) {
	defer s.wg.Done()
	for {
		now := s.clock.Now()
		wait := e.schedule.Next(now).Sub(now)

		select {
		case <-e.stop:
			return
		case <-s.clock.After(wait):
			s.tick(context.Background(), e)
		}
	}
}

// tick runs one poll cycle for a partner. A tick that cannot take the
// distributed lock, or that overlaps a still-running local tick, is a
// clean skip: the next timer fire retries.
func (s *Scheduler) tick(ctx context.Context, e *entry) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		s.logger.WithContext(ctx).WithField("partner", e.partner.Code).Debug("tick skipped: previous tick still running")
		return
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	err := s.locker.WithPollLock(ctx, e.partner.ID, lockTTL, func() error {
		return s.poll(ctx, e.partner)
	})
	if errors.Is(err, redislock.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).WithField("partner", e.partner.Code).Debug("tick skipped: lock held by another instance")
		return
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("partner", e.partner.Code).Warn("poll tick failed")
	}
}

func (s *Scheduler) poll(ctx context.Context, p models.TradingPartner) error {
	files, err := s.poller.Poll(ctx, &p)
	if err != nil {
		return err
	}

	for _, file := range files {
		format, known := formats.InferFormat(file.Name)
		if !known && p.DefaultFormat != "" {
			// Extensionless files fall back to the partner's default.
			format = p.DefaultFormat
		}

		txn, err := s.sink.CreateInbound(ctx, p.TenantID, exchange.InboundRequest{
			PartnerID:    p.ID,
			Format:       format,
			DocumentType: p.DefaultDocumentType,
			RawContent:   string(file.Content),
			CreatedBy:    "scheduler",
		})
		if err != nil && txn.ID == "" {
			// Nothing was recorded; leave the file for the next tick.
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"partner": p.Code,
				"file":    file.Name,
			}).Warn("polled file could not be ingested")
			continue
		}

		// A transaction row exists (completed or failed), so the file is
		// consumed; failures are recoverable via reprocess.
		if err := s.poller.Archive(ctx, &p, file.Name); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"partner": p.Code,
				"file":    file.Name,
			}).Warn("failed to archive polled file")
		}
	}
	return nil
}
