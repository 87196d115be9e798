// Package watch runs the task report on a cron schedule and whenever the
// notification feed reports a change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/metrics"
	"github.com/PentesterFlow/phabconduit/internal/notify"
	"github.com/PentesterFlow/phabconduit/internal/onsub"
	"github.com/PentesterFlow/phabconduit/internal/output"
	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// Trigger sources.
const (
	TriggerSchedule = "schedule"
	TriggerNotify   = "notify"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
)

// Config configures a Runner.
type Config struct {
	// Schedule is a standard five field cron expression. Empty disables
	// scheduled runs.
	Schedule string
	// NotifyURL is the notification feed. Empty disables feed triggers.
	NotifyURL string
	// RunOnStart runs one cycle before waiting for triggers.
	RunOnStart bool
	// ReconnectDelay is the wait before redialing a dropped feed.
	ReconnectDelay time.Duration

	Onsub onsub.Options
}

// Runner serializes report cycles. Triggers arriving while a cycle runs
// collapse into a single follow-up cycle.
type Runner struct {
	factory  *conduit.Factory
	config   Config
	schedule cron.Schedule
	logger   *logger.Logger
	metrics  *metrics.Collector
	output   output.Writer

	triggers chan string
	newRunID func() string

	mu        sync.RWMutex
	last      *output.CycleRecord
	cycles    int
	feedUp    bool
	startedAt time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l.WithComponent("watch")
		}
	}
}

// WithMetrics records cycle metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithOutput writes a record for every cycle.
func WithOutput(w output.Writer) Option {
	return func(r *Runner) { r.output = w }
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// New validates config and creates a Runner.
func New(f *conduit.Factory, config Config, opts ...Option) (*Runner, error) {
	if f == nil {
		return nil, errors.New("watch: no factory")
	}
	if config.Onsub.Room == "" || config.Onsub.Project == "" {
		return nil, errors.New("watch: room and project are required")
	}
	if config.Schedule == "" && config.NotifyURL == "" && !config.RunOnStart {
		return nil, errors.New("watch: nothing to trigger a run; set a schedule or a notify URL")
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}

	r := &Runner{
		factory:  f,
		config:   config,
		logger:   logger.NewNop(),
		triggers: make(chan string, 1),
		newRunID: uuid.NewString,
	}

	if config.Schedule != "" {
		schedule, err := parser.Parse(config.Schedule)
		if err != nil {
			return nil, fmt.Errorf("watch: invalid schedule %q: %w", config.Schedule, err)
		}
		r.schedule = schedule
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Trigger asks for a cycle. It returns false when one is already pending.
func (r *Runner) Trigger(source string) bool {
	select {
	case r.triggers <- source:
		return true
	default:
		r.logger.WithField("trigger", source).Debug("run already pending, trigger coalesced")
		return false
	}
}

// Next returns the next scheduled run after t, or the zero time when no
// schedule is set.
func (r *Runner) Next(t time.Time) time.Time {
	if r.schedule == nil {
		return time.Time{}
	}
	return r.schedule.Next(t)
}

// Run processes triggers until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()

	if r.schedule != nil {
		c := cron.New(cron.WithParser(parser))
		c.Schedule(r.schedule, cron.FuncJob(func() { r.Trigger(TriggerSchedule) }))
		c.Start()
		defer func() { <-c.Stop().Done() }()
		r.logger.WithFields(map[string]interface{}{
			"schedule": r.config.Schedule,
			"next":     r.Next(time.Now()),
		}).Info("schedule started")
	}

	if r.config.NotifyURL != "" {
		go r.followFeed(ctx)
	}

	if r.config.RunOnStart {
		r.Trigger(TriggerStartup)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped")
			return nil
		case source := <-r.triggers:
			r.RunOnce(ctx, source)
		}
	}
}

// RunOnce runs one cycle immediately and returns its record.
func (r *Runner) RunOnce(ctx context.Context, trigger string) *output.CycleRecord {
	runID := r.newRunID()
	log := r.logger.WithRunID(runID)

	opts := r.config.Onsub
	opts.Logger = log

	start := time.Now()
	report, err := onsub.Process(ctx, r.factory, opts)
	finished := time.Now()

	rec := &output.CycleRecord{
		RunID:     runID,
		Trigger:   trigger,
		Room:      opts.Room,
		Project:   opts.Project,
		StartedAt: start,
		Duration:  finished.Sub(start),
	}

	matched, reported := 0, 0
	if report != nil {
		rec.Reported = report.ReportedPHIDs()
		rec.Skipped = report.SkippedPHIDs()
		rec.Posted = report.Posted
		rec.Message = report.Message()
		matched = len(report.Reported) + len(report.Skipped)
		if report.Posted {
			reported = len(report.Reported)
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}

	log.CycleEvent(runID, trigger, matched, reported, err)
	r.metrics.ObserveCycle(err, reported, finished)

	if r.output != nil {
		if werr := r.output.WriteCycle(rec); werr != nil {
			log.WithError(werr).Warn("failed to write cycle record")
		}
	}

	r.mu.Lock()
	r.last = rec
	r.cycles++
	r.mu.Unlock()

	return rec
}

// followFeed subscribes to the token's user and triggers a cycle for every
// notification, redialing when the connection drops.
func (r *Runner) followFeed(ctx context.Context) {
	log := r.logger.WithField("notify_url", r.config.NotifyURL)

	var phids []string
	for {
		phid, err := r.userPHID(ctx)
		if err == nil {
			phids = []string{phid}
			break
		}
		log.WithError(err).Warn("cannot resolve feed subscription")
		if !sleep(ctx, r.config.ReconnectDelay) {
			return
		}
	}

	client := notify.NewClient(r.config.NotifyURL, phids, r.logger)
	for {
		events, err := client.Listen(ctx)
		if err != nil {
			log.WithError(err).Warn("feed unavailable")
		} else {
			r.setFeedUp(true)
			log.Info("listening for notifications")
			for n := range events {
				log.WithField("key", n.Key).Debug("notification received")
				r.Trigger(TriggerNotify)
			}
			r.setFeedUp(false)
		}
		if !sleep(ctx, r.config.ReconnectDelay) {
			return
		}
	}
}

func (r *Runner) userPHID(ctx context.Context) (string, error) {
	res, err := r.factory.User().WhoAmI(ctx)
	if err != nil {
		return "", err
	}
	me, err := conduit.DecodeUserInfo(res)
	if err != nil {
		return "", err
	}
	if me.PHID == "" {
		return "", conduit.NewDecodeError("user.whoami", "result has no phid", nil)
	}
	return me.PHID, nil
}

func (r *Runner) setFeedUp(up bool) {
	r.mu.Lock()
	r.feedUp = up
	r.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Status is a snapshot of the runner.
type Status struct {
	StartedAt time.Time           `json:"started_at"`
	Cycles    int                 `json:"cycles"`
	FeedUp    bool                `json:"feed_connected"`
	NextRun   *time.Time          `json:"next_run,omitempty"`
	Last      *output.CycleRecord `json:"last,omitempty"`
}

// Status returns the current runner status.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Status{
		StartedAt: r.startedAt,
		Cycles:    r.cycles,
		FeedUp:    r.feedUp,
		Last:      r.last,
	}
	if next := r.Next(time.Now()); !next.IsZero() {
		s.NextRun = &next
	}
	return s
}
