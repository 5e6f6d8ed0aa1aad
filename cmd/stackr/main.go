// Command stackr tracks streak-score post series on Reddit and keeps a
// running leaderboard comment under every post in each series.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liquidfun/stackr/infrastructure/charts"
	"github.com/liquidfun/stackr/infrastructure/export"
	"github.com/liquidfun/stackr/infrastructure/imgur"
	"github.com/liquidfun/stackr/infrastructure/reddit"
	"github.com/liquidfun/stackr/internal/application"
	"github.com/liquidfun/stackr/internal/config"
	"github.com/liquidfun/stackr/internal/scorefunc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:           "stackr",
		Short:         "Streak-score series leaderboard bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "compute and log everything, mutate nothing")

	root.AddCommand(newRunCmd(&configPath, &debug))
	root.AddCommand(newExportCmd(&configPath))
	return root
}

func loadEnvironment(ctx context.Context, configPath string, debugFlag bool) (*config.Config, *zap.Logger, *application.Tracker, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if debugFlag {
		cfg.Debug = true
	}

	var log *zap.Logger
	if cfg.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	client, err := reddit.New(ctx, cfg.Reddit)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []application.TrackerOption{
		application.WithLogger(log),
		application.WithDebug(cfg.Debug),
		application.WithFooter(cfg.Maintainer, cfg.SourceURL),
		application.WithChartRenderer(charts.NewRenderer()),
	}
	if cfg.Imgur != nil {
		opts = append(opts, application.WithImageHost(imgur.New(cfg.Imgur.ClientID)))
	}

	tracker := application.NewTracker(client, scorefunc.NewCompiler(), opts...)
	return cfg, log, tracker, nil
}

func newRunCmd(configPath *string, debug *bool) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every configured series, then sleep and repeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, tracker, err := loadEnvironment(ctx, *configPath, *debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Debug {
				log.Info("running in debug mode, no platform changes will be made")
			}

			for {
				runPass(ctx, cfg, log, tracker)
				if once || cfg.Debug {
					return nil
				}
				log.Info("sleeping until next pass", zap.Duration("interval", cfg.SleepInterval()))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(cfg.SleepInterval()):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

// runPass processes every series once. A failed series is reported to the
// maintainer and does not stop the remaining series or the run loop.
func runPass(ctx context.Context, cfg *config.Config, log *zap.Logger, tracker *application.Tracker) {
	for i := range cfg.Series {
		series := &cfg.Series[i]
		if err := tracker.ProcessSeries(ctx, series); err != nil {
			log.Error("series pass failed", zap.String("series", series.Title), zap.Error(err))
			reportError(ctx, cfg, log, tracker, series.Title, err)
		}
	}
}

func reportError(ctx context.Context, cfg *config.Config, log *zap.Logger, tracker *application.Tracker, series string, passErr error) {
	if cfg.Maintainer == "" || cfg.Debug {
		return
	}
	subject := fmt.Sprintf("%s Error in stackr", time.Now().UTC().Format("2006-01-02 15:04:05"))
	body := fmt.Sprintf("Series %q failed:\n\n    %v\n", series, passErr)
	if err := tracker.Message(ctx, cfg.Maintainer, subject, body); err != nil {
		log.Error("failed to message maintainer", zap.Error(err))
	}
}

func newExportCmd(configPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write current standings for every series to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, tracker, err := loadEnvironment(ctx, *configPath, false)
			if err != nil {
				return err
			}
			defer log.Sync()

			sheets := make([]export.SeriesStandings, 0, len(cfg.Series))
			for i := range cfg.Series {
				series := &cfg.Series[i]
				standings, rounds, err := tracker.Standings(ctx, series)
				if err != nil {
					return fmt.Errorf("series %q: %w", series.Title, err)
				}
				log.Info("collected standings",
					zap.String("series", series.Title),
					zap.Int("participants", len(standings)),
					zap.Int("rounds", rounds))
				sheets = append(sheets, export.SeriesStandings{
					Title:     series.Title,
					Standings: standings,
					Exclude:   series.SheetExcludeSet(),
				})
			}
			if err := export.Workbook(out, sheets); err != nil {
				return err
			}
			log.Info("wrote workbook", zap.String("path", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "standings.xlsx", "output workbook path")
	return cmd
}
