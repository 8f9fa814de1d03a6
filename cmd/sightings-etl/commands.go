package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cobrasdm/sightings-etl/internal/adapter/nominatim"
	"github.com/cobrasdm/sightings-etl/internal/adapter/sqlite"
	"github.com/cobrasdm/sightings-etl/internal/config"
	"github.com/cobrasdm/sightings-etl/internal/domain"
	"github.com/cobrasdm/sightings-etl/internal/observability"
	"github.com/cobrasdm/sightings-etl/internal/pipeline"
)

var errValidationFailed = errors.New("validation failed")

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	stdout  io.Writer

	command string // name of the subcommand that ran
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sightings-etl",
		Short:         "Snake sightings data pipeline",
		SilenceErrors: true,
		// Arguments are validated before this hook, so usage is still
		// printed for argument errors but not for stage failures.
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SilenceUsage = true
			a.command = cmd.Name()
		},
	}

	root.AddCommand(
		a.stageCommand("clean <input.csv> <output.csv>", "Parse dates, filter the date window, and normalize locations", cobra.ExactArgs(2),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Clean(cmd.Context(), args[0], args[1])
				return err
			}),
		a.geocodeCommand(),
		a.stageCommand("merge <output.csv> <input.csv>...", "Concatenate point files", cobra.MinimumNArgs(2),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Merge(cmd.Context(), args[0], args[1:]...)
				return err
			}),
		a.stageCommand("assign <input.csv> <boundaries.shp>", "Assign each point to an administrative unit", cobra.ExactArgs(2),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Assign(cmd.Context(), args[0], args[1])
				return err
			}),
		a.stageCommand("aggregate <input.csv>", "Count sightings per unit, species, and day", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Aggregate(cmd.Context(), args[0])
				return err
			}),
		a.stageCommand("grid <input.csv>", "Expand daily counts into a complete grid", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Grid(cmd.Context(), args[0])
				return err
			}),
		a.stageCommand("redistribute <input.csv>", "Replace zero cells with Poisson draws around the local mean", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Redistribute(cmd.Context(), args[0])
				return err
			}),
		a.stageCommand("harmonize <counts.csv> <env.csv>", "Coerce keys and drop duplicates", cobra.ExactArgs(2),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Harmonize(cmd.Context(), args[0], args[1])
				return err
			}),
		a.stageCommand("fuse <counts.csv> <env.csv>", "Join environmental covariates onto counts", cobra.ExactArgs(2),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Fuse(cmd.Context(), args[0], args[1])
				return err
			}),
		a.stageCommand("impute <model_dataset_raw.csv>", "Fill environmental gaps per administrative unit", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Impute(cmd.Context(), args[0])
				return err
			}),
		a.stageCommand("normalize <model_dataset.csv>", "Min-max scale environmental features", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Normalize(cmd.Context(), args[0])
				return err
			}),
		a.stageCommand("validate <grid.csv> <redistributed.csv> <model.csv>", "Check dataset integrity across stages", cobra.ExactArgs(3),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				phases, err := r.Validate(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if !pipeline.AllPassed(phases) {
					return errValidationFailed
				}
				return nil
			}),
		a.stageCommand("units <counts.csv>", "Print the unique administrative unit codes", cobra.ExactArgs(1),
			func(cmd *cobra.Command, r *pipeline.Runner, args []string) error {
				_, err := r.Units(cmd.Context(), args[0])
				return err
			}),
	)
	return root
}

type stageFunc func(cmd *cobra.Command, r *pipeline.Runner, args []string) error

func (a *app) stageCommand(use, short string, args cobra.PositionalArgs, fn stageFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(nil)
			if err != nil {
				return err
			}
			return fn(cmd, r, args)
		},
	}
}

func (a *app) geocodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <input.csv> <output.csv>",
		Short: "Resolve locations to coordinates through Nominatim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			geocoder, closeFn, err := a.geocoder()
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(); err != nil {
					a.logger.Warn("close geocode cache", "error", err)
				}
			}()

			r, err := a.runner(geocoder)
			if err != nil {
				return err
			}
			_, err = r.Geocode(cmd.Context(), args[0], args[1])
			return err
		},
	}
}

func (a *app) runner(geocoder domain.Geocoder) (*pipeline.Runner, error) {
	return pipeline.New(pipeline.OptionsFromConfig(a.cfg), geocoder, a.stdout, a.logger, a.metrics)
}

// geocoder builds memo -> persistent cache -> throttle -> HTTP client, so
// cache hits never wait on the throttle.
func (a *app) geocoder() (domain.Geocoder, func() error, error) {
	client := nominatim.NewClient(a.cfg.NominatimURL, a.cfg.NominatimUserAgent, a.cfg.GeocodeTimeout, a.metrics, a.logger)
	var g domain.Geocoder = nominatim.NewThrottledGeocoder(client, a.cfg.GeocodeDelay, nil)

	closeFn := func() error { return nil }
	if a.cfg.GeocodeCacheDB != "" {
		store, err := sqlite.Open(a.cfg.GeocodeCacheDB, g, a.metrics, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("geocode cache: %w", err)
		}
		g = store
		closeFn = store.Close
		a.logger.Info("persistent geocode cache enabled", "path", a.cfg.GeocodeCacheDB)
	}

	a.logger.Info("nominatim geocoding enabled",
		"url", a.cfg.NominatimURL,
		"timeout", a.cfg.GeocodeTimeout,
		"delay", a.cfg.GeocodeDelay,
	)
	return nominatim.NewCachedGeocoder(g, a.metrics), closeFn, nil
}
