package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/phabconduit/internal/config"
	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/metrics"
	"github.com/PentesterFlow/phabconduit/internal/onsub"
	"github.com/PentesterFlow/phabconduit/internal/output"
	"github.com/PentesterFlow/phabconduit/internal/shutdown"
	"github.com/PentesterFlow/phabconduit/internal/state"
	"github.com/PentesterFlow/phabconduit/internal/watch"
	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// session is the state every command shares.
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Collector
	factory *conduit.Factory
	out     output.Writer
	stop    *shutdown.Handler
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		log:     newLogger(cfg),
		metrics: metrics.New(),
	}
	if s.factory, err = newFactory(cfg, s.log, s.metrics); err != nil {
		return nil, err
	}
	if s.out, err = openOutput(); err != nil {
		s.factory.Close()
		return nil, err
	}

	s.stop = shutdown.New(shutdown.Config{
		Timeout: 15 * time.Second,
		OnDone: func(elapsed time.Duration, err error) {
			if err != nil {
				s.log.WithError(err).Warn("shutdown finished with errors")
			}
		},
	})
	s.stop.RegisterFunc("client", s.factory.Close)
	s.stop.Register("output", func(context.Context) error { return s.out.Close() })
	s.stop.Listen(context.Background())

	return s, nil
}

func (s *session) close() error {
	s.stop.Shutdown()
	return s.stop.Err()
}

func runCall(cmd *cobra.Command, args []string) error {
	method := args[0]
	params, err := readParams(paramsArg, os.Stdin)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	enc := conduit.ManualEncoding
	if standard {
		enc = conduit.StandardEncoding
	}

	res, err := s.factory.Client().CallMethod(s.stop.Context(), method, params, enc)
	if err != nil {
		return describe(err)
	}
	if err := s.out.WriteRaw(res.Raw()); err != nil {
		return err
	}
	return s.out.Flush()
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.factory.User().WhoAmI(s.stop.Context())
	if err != nil {
		return describe(err)
	}
	me, err := conduit.DecodeUserInfo(res)
	if err != nil {
		return err
	}
	if err := s.out.WriteValue(me); err != nil {
		return err
	}
	return s.out.Flush()
}

func runTaskOnsub(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	cfg := s.cfg

	opts, err := onsubOptions(s, cfg.Onsub.Room, cfg.Onsub.Project, cfg.Watch.StateFile)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := onsub.Process(s.stop.Context(), s.factory, opts)
	if report != nil {
		rec := &output.CycleRecord{
			Trigger:   watch.TriggerManual,
			Room:      opts.Room,
			Project:   opts.Project,
			StartedAt: start,
			Duration:  time.Since(start),
			Reported:  report.ReportedPHIDs(),
			Skipped:   report.SkippedPHIDs(),
			Posted:    report.Posted,
			Message:   report.Message(),
		}
		if werr := s.out.WriteCycle(rec); werr != nil {
			return werr
		}
		if ferr := s.out.Flush(); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return describe(err)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	cfg := s.cfg

	opts, err := onsubOptions(s, cfg.Onsub.Room, cfg.Onsub.Project, cfg.Watch.StateFile)
	if err != nil {
		return err
	}

	runner, err := watch.New(s.factory, watch.Config{
		Schedule:   cfg.Watch.Schedule,
		NotifyURL:  cfg.Watch.NotifyURL,
		RunOnStart: runOnStart,
		Onsub:      opts,
	},
		watch.WithLogger(s.log),
		watch.WithMetrics(s.metrics),
		watch.WithOutput(s.out),
	)
	if err != nil {
		return err
	}

	if cfg.Watch.MetricsAddr != "" {
		srv := runner.StatusServer(cfg.Watch.MetricsAddr)
		s.stop.RegisterServer("status server", srv)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.WithError(err).Error("status server failed")
				s.stop.Trigger()
			}
		}()
		s.log.WithField("addr", cfg.Watch.MetricsAddr).Info("status server listening")
	}

	return runner.Run(s.stop.Context())
}

// onsubOptions opens the ledger, if any, and registers it for shutdown.
func onsubOptions(s *session, room, project, ledgerPath string) (onsub.Options, error) {
	if room == "" || project == "" {
		return onsub.Options{}, errors.New("--room and --project are required")
	}
	opts := onsub.Options{
		Room:    room,
		Project: project,
		DryRun:  dryRun,
		Logger:  s.log,
	}
	if ledgerPath != "" {
		ledger, err := state.Open(ledgerPath)
		if err != nil {
			return onsub.Options{}, fmt.Errorf("failed to open state file: %w", err)
		}
		s.stop.Register("ledger", func(context.Context) error { return ledger.Close() })
		opts.Ledger = ledger
	}
	return opts, nil
}

// describe adds a hint for the error categories a user can act on.
func describe(err error) error {
	switch {
	case conduit.IsConfigurationError(err):
		return fmt.Errorf("%w (check --host and --token)", err)
	case conduit.IsTransportError(err):
		return fmt.Errorf("%w (is the server reachable?)", err)
	default:
		return err
	}
}
