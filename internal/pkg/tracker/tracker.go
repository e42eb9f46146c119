package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiftsense/tracking-engine-go/internal/domain/consent"
	"github.com/shiftsense/tracking-engine-go/internal/domain/session"
)

// Position is one location reading for an employee.
type Position struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Timestamp      time.Time
}

// LocationSource produces location readings. Implementations wrap whatever
// feed is available: a device push gateway, an MDM API, a test fake.
type LocationSource interface {
	Sample(ctx context.Context, employeeID string) (Position, error)
}

// ErrAlreadyTracking means Start was called twice for the same session.
var ErrAlreadyTracking = errors.New("session is already being tracked")

// ErrNoLocationFeed means no location feed is configured; samples arrive
// only through the ingest endpoint.
var ErrNoLocationFeed = errors.New("no location feed configured")

type nullSource struct{}

// NewNullSource returns a LocationSource for deployments without a
// server-side location feed. Every Sample fails with ErrNoLocationFeed and
// the coordinator just keeps ticking.
func NewNullSource() LocationSource {
	return nullSource{}
}

func (nullSource) Sample(ctx context.Context, employeeID string) (Position, error) {
	return Position{}, ErrNoLocationFeed
}

// Coordinator runs one background sampling loop per tracked session.
// Consent is checked on start and re-checked every interval; revocation
// stops the loop mid-flight and discards the pending sample.
type Coordinator struct {
	svc      session.SessionService
	consents consent.ConsentRepository
	source   LocationSource
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(
	svc session.SessionService,
	consents consent.ConsentRepository,
	source LocationSource,
	interval time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		svc:      svc,
		consents: consents,
		source:   source,
		interval: interval,
		logger:   logger,
		active:   make(map[string]context.CancelFunc),
	}
}

// Start begins background sampling for a session. It fails when the
// employee has not consented to tracking.
func (c *Coordinator) Start(ctx context.Context, sessionID, employeeID, companyID string) error {
	if err := c.checkConsent(ctx, employeeID, companyID); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.active[sessionID]; ok {
		c.mu.Unlock()
		return ErrAlreadyTracking
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.active[sessionID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(loopCtx, sessionID, employeeID, companyID)
	return nil
}

// Stop ends sampling for one session. Stopping an untracked session is a
// no-op.
func (c *Coordinator) Stop(sessionID string) {
	c.mu.Lock()
	cancel, ok := c.active[sessionID]
	if ok {
		delete(c.active, sessionID)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll ends every sampling loop and waits for them to exit.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	for id, cancel := range c.active {
		cancel()
		delete(c.active, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Tracking reports whether a session has an active sampling loop.
func (c *Coordinator) Tracking(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[sessionID]
	return ok
}

func (c *Coordinator) checkConsent(ctx context.Context, employeeID, companyID string) error {
	rec, err := c.consents.Get(ctx, employeeID, companyID)
	if err != nil {
		if errors.Is(err, consent.ErrConsentNotFound) {
			return consent.ErrConsentRevoked
		}
		return err
	}
	if !rec.Allows() {
		return consent.ErrConsentRevoked
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, sessionID, employeeID, companyID string) {
	defer c.wg.Done()
	defer c.Stop(sessionID)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.checkConsent(ctx, employeeID, companyID); err != nil {
			c.logger.Info("tracking stopped",
				slog.String("session_id", sessionID),
				slog.String("reason", err.Error()))
			return
		}

		pos, err := c.source.Sample(ctx, employeeID)
		// Shutdown during a slow sample discards the result.
		if ctx.Err() != nil {
			return
		}
		// So does revocation: consent may have been withdrawn while the
		// sample was in flight, and a withdrawn consent covers that sample.
		if cerr := c.checkConsent(ctx, employeeID, companyID); cerr != nil {
			c.logger.Info("tracking stopped",
				slog.String("session_id", sessionID),
				slog.String("reason", cerr.Error()))
			return
		}
		if err != nil {
			if !errors.Is(err, ErrNoLocationFeed) {
				c.logger.Warn("location sample failed",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()))
			}
		} else {
			ts := pos.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			sample := session.LocationSample{
				ID:             uuid.NewString(),
				Latitude:       pos.Latitude,
				Longitude:      pos.Longitude,
				AccuracyMeters: pos.AccuracyMeters,
				Timestamp:      ts,
			}
			if err := c.svc.ApplySystemEvent(ctx, sessionID, companyID, sample); err != nil {
				c.logger.Warn("location sample rejected",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()))
			}
		}

		// Time-based transitions should not wait for the global sweep while a
		// session is actively tracked.
		tick := session.TimeTick{ID: uuid.NewString(), Now: time.Now()}
		if err := c.svc.ApplySystemEvent(ctx, sessionID, companyID, tick); err != nil {
			c.logger.Warn("time tick rejected",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
	}
}
