package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/config"
	"github.com/Sussexdowns/Foodshare/internal/county"
	"github.com/Sussexdowns/Foodshare/internal/fetch"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "List the county manifest and which counties are in the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.Configured(cfg.Source.CountyManifest) {
			return &config.ConfigurationError{Field: "source.county_manifest", Reason: "no county manifest configured"}
		}

		client := fetch.NewClient(cfg.Fetch.TimeoutDuration(), cfg.Fetch.RateLimit, cfg.Fetch.UserAgent)
		m, err := county.LoadManifest(context.Background(), client, cfg.Source.CountyManifest)
		if err != nil {
			return err
		}

		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.ReadSnapshot()
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		loaded := make(map[string]bool, len(snap.LoadedCounties))
		for _, id := range snap.LoadedCounties {
			loaded[id] = true
		}
		perCounty := s.CountByCounty()

		fmt.Printf("%d counties in manifest\n", len(m.Counties))
		for _, c := range m.Counties {
			mark := " "
			if loaded[c.ID] {
				mark = "*"
			}
			fmt.Printf("%s %-20s %-24s %5d locations  %s\n", mark, c.ID, c.Name, perCounty[c.ID], county.CSVLocation(cfg.Source.CountyBase, c))
		}
		logVerbose("* = loaded in snapshot")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countiesCmd)
}
