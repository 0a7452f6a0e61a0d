package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

var (
	loadSource  string
	loadAddress string
	loadZoom    int
	loadLat     float64
	loadLng     float64
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetch and normalize location data, then save a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("source") {
			cfg.Source.Mode = loadSource
		}

		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		locs := store.NewLocationStore()
		l := loader.New(cfg, locs, logger)

		req := loader.Request{Prefs: model.DefaultPreferences(), Zoom: loadZoom}
		req.Prefs.SavedAddress = loadAddress
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			req.Device = &model.LatLng{Lat: loadLat, Lng: loadLng}
		}

		fmt.Println("Loading locations...")
		res, err := l.Load(context.Background(), req)
		for _, w := range res.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}

		var ce *config.ConfigurationError
		if errors.As(err, &ce) {
			return err
		}
		var pbe *loader.PartialBatchError
		if err != nil && !(errors.As(err, &pbe) && locs.Len() > 0) {
			return fmt.Errorf("load failed: %w", err)
		}

		logVerbose("source=%s state=%s center=%v (%s)", res.Source, res.State, res.Center, res.CenterSource)
		fmt.Println(loader.Summary(res))

		snap := &store.Snapshot{
			Locations:      locs.All(),
			LoadedCounties: locs.LoadedCounties(),
			Source:         res.Source,
			TakenAt:        time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.WriteSnapshot(snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}

		fmt.Printf("Saved %d locations", len(snap.Locations))
		if len(snap.LoadedCounties) > 0 {
			fmt.Printf(" from %d counties", len(snap.LoadedCounties))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadSource, "source", "auto", "Source mode: auto, csv, county, json or html")
	loadCmd.Flags().StringVar(&loadAddress, "address", "", "Address to center county loading on")
	loadCmd.Flags().IntVar(&loadZoom, "zoom", 0, "Zoom level used to size the county viewport")
	loadCmd.Flags().Float64Var(&loadLat, "lat", 0, "Latitude of the current position")
	loadCmd.Flags().Float64Var(&loadLng, "lng", 0, "Longitude of the current position")
	rootCmd.AddCommand(loadCmd)
}
