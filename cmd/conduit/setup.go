package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/phabconduit/internal/config"
	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/metrics"
	"github.com/PentesterFlow/phabconduit/internal/output"
	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// loadConfig merges defaults, the config file, the environment and flags,
// then fills anything still missing from the arcrc.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		fileConfig, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = fileConfig
	}

	cfg.ApplyEnv()
	applyFlags(cmd, cfg)

	rc := arcrcFile
	if rc == "" {
		rc = config.DefaultArcrcPath()
	}
	if rc != "" {
		if err := config.LoadArcrc(rc, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("host") {
		cfg.Host = host
	}
	if changed("token") {
		cfg.Token = token
	}
	if changed("timeout") {
		cfg.Timeout = timeout
	}
	if changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if debug {
		cfg.Log.Level = "trace"
	}
	if changed("room") {
		cfg.Onsub.Room = room
	}
	if changed("project") {
		cfg.Onsub.Project = project
	}
	if changed("state-file") {
		cfg.Watch.StateFile = stateFile
	}
	if changed("schedule") {
		cfg.Watch.Schedule = schedule
	}
	if changed("notify-url") {
		cfg.Watch.NotifyURL = notifyURL
	}
	if changed("metrics-addr") {
		cfg.Watch.MetricsAddr = metricsAddr
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logger.InfoLevel
	}
	if cfg.Log.JSON {
		return logger.NewJSON(level)
	}
	lc := logger.DefaultConfig()
	lc.Level = level
	return logger.New(lc)
}

func newFactory(cfg *config.Config, log *logger.Logger, m *metrics.Collector) (*conduit.Factory, error) {
	requestTimeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	interval, err := cfg.RequestInterval()
	if err != nil {
		return nil, err
	}

	tc := conduit.DefaultTransportConfig()
	tc.Timeout = requestTimeout
	tc.SkipTLSVerify = cfg.SkipTLSVerify
	tc.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	tc.Burst = cfg.RateLimit.Burst
	tc.MinInterval = interval
	tc.UserAgent = "phabconduit/" + version

	return conduit.NewFactory(cfg.Credential(),
		conduit.WithTransport(conduit.NewHTTPTransport(tc)),
		conduit.WithLogger(log),
		conduit.WithMetrics(m),
	), nil
}

func openOutput() (output.Writer, error) {
	switch outputFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unknown output format %q", outputFormat)
	}
	return output.Open(output.Config{
		Format:   outputFormat,
		Pretty:   pretty,
		Stream:   !pretty,
		FilePath: outputFile,
	})
}

// readParams parses --params: inline JSON, @file, or - for stdin. Empty
// means no parameters.
func readParams(arg string, stdin io.Reader) (conduit.Param, error) {
	var data []byte
	var err error

	switch {
	case strings.TrimSpace(arg) == "":
		return conduit.Map(), nil
	case arg == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(arg[1:])
	default:
		data = []byte(arg)
	}
	if err != nil {
		return conduit.Param{}, fmt.Errorf("failed to read params: %w", err)
	}

	params, err := conduit.ParseJSON(data)
	if err != nil {
		return conduit.Param{}, fmt.Errorf("invalid params: %w", err)
	}
	if params.Kind() != conduit.KindMap {
		return conduit.Param{}, fmt.Errorf("invalid params: expected a JSON object, got %s", params.Kind())
	}
	return params, nil
}
