package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/packbench/internal/config"
	"github.com/signalnine/packbench/internal/gitops"
	"github.com/signalnine/packbench/internal/launcher"
	"github.com/signalnine/packbench/internal/metrics"
	"github.com/signalnine/packbench/internal/report"
	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/runner"
	"github.com/signalnine/packbench/internal/suite"
)

var (
	flagType     string
	flagDepth    int
	flagLaunches int
	flagMaxStdev float64
	flagRetries  int
	flagStrict   bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure every suite of the configured type",
		RunE:  runBenchmark,
	}
	cmd.Flags().StringVar(&flagType, "type", "", "suite collection to run (sync, async)")
	cmd.Flags().IntVar(&flagDepth, "depth", 0, "override discovery nesting depth")
	cmd.Flags().IntVar(&flagLaunches, "launches", 0, "override launches per pack")
	cmd.Flags().Float64Var(&flagMaxStdev, "max-stdev", 0, "override the time deviation that triggers a retry")
	cmd.Flags().IntVar(&flagRetries, "retries", 0, "override the retry budget per suite")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "fail the run when any suite fails every launch")
	return cmd
}

// loadConfig reads the config file and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("type") {
		o.Type = flagType
	}
	if flags.Changed("depth") {
		o.Depth = &flagDepth
	}
	if flags.Changed("launches") {
		o.Launches = &flagLaunches
	}
	if flags.Changed("max-stdev") {
		o.MaxStdev = &flagMaxStdev
	}
	if flags.Changed("retries") {
		o.Retries = &flagRetries
	}
	if err := cfg.Apply(o); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	suites, err := suite.Discover(cfg.SuitesPath(), cfg.Suites.Ext, cfg.Nesting())
	if err != nil {
		return err
	}
	if len(suites) == 0 {
		return fmt.Errorf("no suites found in %s", cfg.SuitesPath())
	}

	basedir, err := cfg.AbsBasedir()
	if err != nil {
		return err
	}

	extraEnv, err := workerExtraEnv(cfg)
	if err != nil {
		return err
	}

	l, closeLauncher, err := newLauncher(cfg, basedir)
	if err != nil {
		return err
	}
	defer closeLauncher()

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run directory: %s\n", runDir)

	revision, err := gitops.Revision(cfg.Suites.Dir)
	if err != nil {
		logrus.WithError(err).Warn("could not determine suite revision")
	}
	manifest := &result.RunManifest{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Type:      cfg.Type,
		Depth:     cfg.Nesting(),
		Launches:  cfg.LaunchCount(),
		MaxStdev:  cfg.MaxDeviation(),
		Retries:   cfg.RetryBudget(),
		Launcher:  fmt.Sprint(l),
		Revision:  revision,
	}
	if err := result.WriteManifest(runDir, manifest); err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	r := runner.New(l, runner.Options{
		Launches: cfg.LaunchCount(),
		MaxStdev: cfg.MaxDeviation(),
		Retries:  cfg.RetryBudget(),
		Root:     cfg.SuitesPath(),
		Env:      launcher.WorkerEnv(basedir, cfg.Nesting(), extraEnv),
	}, rec)
	driver := &runner.Driver{
		Runner: r,
		Sink: report.MultiSink{
			&report.ConsoleSink{W: out},
			&report.StoreSink{RunDir: runDir},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"run":       manifest.ID,
		"suites":    len(suites),
		"launches":  cfg.LaunchCount(),
		"max_stdev": cfg.MaxDeviation(),
		"retries":   cfg.RetryBudget(),
	}).Info("starting run")

	summary, runErr := driver.Run(ctx, suites)

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logrus.WithError(err).Warn("metrics not written")
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Generate(runDir, "table", out); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"suites":  summary.Suites,
		"errors":  summary.Errors,
		"retries": summary.Retries,
	}).Info("run complete")

	if len(summary.Failed) > 0 {
		logrus.WithField("suites", summary.Failed).Warn("suites failed every launch")
		if flagStrict {
			return fmt.Errorf("%d suite(s) failed every launch: %v", len(summary.Failed), summary.Failed)
		}
	}
	return nil
}

// workerExtraEnv merges the env file with inline env; inline values win.
func workerExtraEnv(cfg *config.Config) (map[string]string, error) {
	env := map[string]string{}
	if cfg.Launcher.EnvFile != "" {
		fromFile, err := launcher.LoadEnvFile(cfg.Launcher.EnvFile)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			env[k] = v
		}
	}
	for k, v := range cfg.Launcher.Env {
		env[k] = v
	}
	return env, nil
}

func dockerOpts(cfg *config.Config, basedir string) launcher.DockerOpts {
	return launcher.DockerOpts{
		Image:       cfg.Launcher.Image,
		Command:     cfg.Launcher.Command,
		Basedir:     basedir,
		Timeout:     cfg.Launcher.Timeout,
		CPULimit:    cfg.Launcher.CPUs,
		MemoryLimit: cfg.MemoryLimit(),
	}
}

func newLauncher(cfg *config.Config, basedir string) (launcher.Launcher, func(), error) {
	switch cfg.Launcher.Kind {
	case config.LauncherDocker:
		l, err := launcher.NewDockerLauncher(dockerOpts(cfg, basedir))
		if err != nil {
			return nil, nil, err
		}
		return l, func() { l.Close() }, nil
	default:
		return &launcher.ExecLauncher{
			Command: cfg.Launcher.Command,
			Timeout: cfg.Launcher.Timeout,
		}, func() {}, nil
	}
}
