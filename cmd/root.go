package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/render"
)

var (
	dataDir    string
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "foodshare",
	Short: "Load, filter and map community foraging and food-sharing locations",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.Data.Dir
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "Directory for the snapshot database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func Execute() error {
	return rootCmd.Execute()
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// renderConfig maps the [map] section onto the render thresholds.
func renderConfig(c *config.Config) render.Config {
	return render.Config{
		HeatmapZoom:   c.Map.HeatmapZoom,
		FitPadding:    c.Map.FitPadding,
		DefaultCenter: model.LatLng{Lat: c.Map.DefaultCenter[0], Lng: c.Map.DefaultCenter[1]},
		DefaultZoom:   c.Map.DefaultZoom,
		HeatPrecision: c.Map.HeatPrecision,
	}
}
