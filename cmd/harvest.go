package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venue-atlas/internal/geojson"
	"github.com/sells-group/venue-atlas/internal/model"
	"github.com/sells-group/venue-atlas/internal/pipeline"
)

var (
	harvestStates    []string
	harvestCities    []string
	harvestAllStates bool
	harvestOutputDir string
	harvestMode      string
	harvestUpload    bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest, geocode, and write venues for cities or states",
	Example: `  venue-atlas harvest --state MA --city Boston
  venue-atlas harvest --state MA --state RI --mode merge
  venue-atlas harvest --all-states --upload`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if harvestOutputDir != "" {
			cfg.Output.Dir = harvestOutputDir
		}
		if harvestMode != "" {
			cfg.Output.Mode = harvestMode
		}
		mode, err := geojson.ParseMode(cfg.Output.Mode)
		if err != nil {
			return err
		}
		if err := checkUpload(mode, harvestUpload); err != nil {
			return err
		}

		env, err := initHarvest(ctx, "harvest")
		if err != nil {
			return err
		}
		defer env.Close()

		targets, err := buildTargets(harvestStates, harvestCities, harvestAllStates, env.States)
		if err != nil {
			return err
		}

		p := pipeline.New(pipeline.Deps{
			Source:    env.Source,
			Extractor: env.Extractor,
			Store:     env.Store,
			Geocoder:  env.Geocoder,
		}, pipeline.Options{
			OutputDir: cfg.Output.Dir,
			Mode:      mode,
		})

		report, err := p.Run(ctx, targets)
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), report.Format())
		}
		if err != nil {
			return err
		}

		if !harvestUpload {
			return nil
		}
		if cfg.Upload.Key == "" {
			zap.L().Warn("upload requested but upload.key is not set, skipping")
			return nil
		}
		return uploadFile(ctx, cmd, report.Path)
	},
}

// checkUpload rejects uploads of append-mode output, which may hold several
// concatenated collections that the import API cannot parse.
func checkUpload(mode geojson.Mode, upload bool) error {
	if upload && mode == geojson.ModeAppend {
		return eris.New("--upload cannot be used with append mode")
	}
	return nil
}

// buildTargets turns the harvest flags into pipeline targets. Cities apply
// only when exactly one state is named.
func buildTargets(states, cities []string, all bool, table model.States) ([]pipeline.Target, error) {
	if all {
		if len(states) > 0 || len(cities) > 0 {
			return nil, eris.New("--all-states cannot be combined with --state or --city")
		}
		codes := table.Codes()
		targets := make([]pipeline.Target, 0, len(codes))
		for _, code := range codes {
			targets = append(targets, pipeline.Target{State: code})
		}
		return targets, nil
	}

	if len(states) == 0 {
		return nil, eris.New("at least one --state (or --all-states) is required")
	}
	if len(cities) > 0 && len(states) != 1 {
		return nil, eris.New("--city requires exactly one --state")
	}

	targets := make([]pipeline.Target, 0, len(states))
	for _, s := range states {
		code := strings.ToUpper(strings.TrimSpace(s))
		if _, ok := table.Name(code); !ok {
			return nil, eris.Errorf("unknown state %q", s)
		}
		targets = append(targets, pipeline.Target{State: code, Cities: cities})
	}
	return targets, nil
}

func init() {
	f := harvestCmd.Flags()
	f.StringArrayVar(&harvestStates, "state", nil, "state code to harvest (repeatable)")
	f.StringArrayVar(&harvestCities, "city", nil, "city to harvest within the state (repeatable, default all cities)")
	f.BoolVar(&harvestAllStates, "all-states", false, "harvest every state in the state table")
	f.StringVar(&harvestOutputDir, "output-dir", "", "output directory (default from config)")
	f.StringVar(&harvestMode, "mode", "", "write mode: replace, merge, append (default from config)")
	f.BoolVar(&harvestUpload, "upload", false, "upload the written file to the map import API")
	rootCmd.AddCommand(harvestCmd)
}
