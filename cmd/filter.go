package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/filter"
	"github.com/Sussexdowns/Foodshare/internal/render"
	"github.com/Sussexdowns/Foodshare/internal/season"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

var (
	filterCategory string
	filterItem     string
	filterMonths   string
	filterZoom     int
	filterGeoJSON  bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter the saved snapshot by category, item and month",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.ReadSnapshot()
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if len(snap.Locations) == 0 {
			return fmt.Errorf("no snapshot in %s, run 'foodshare load' first", dataDir)
		}

		sel := filter.Selection{Category: filterCategory, Item: filterItem, Months: season.Decode(filterMonths)}
		matched := filter.Filter(snap.Locations, sel)

		if !cmd.Flags().Changed("zoom") {
			filterZoom = cfg.Map.DefaultZoom
		}
		plan := render.ComputePlan(matched, filterZoom, render.FromFilter, renderConfig(cfg))

		if filterGeoJSON {
			data, err := render.GeoJSON(plan).MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(matched) == 0 {
			fmt.Println("No locations match.")
			if s := filter.SuggestItem(snap.Locations, filterItem); filterItem != "" && s != "" && s != filterItem {
				fmt.Printf("Did you mean %q?\n", s)
			}
			return nil
		}

		for _, l := range matched {
			fmt.Printf("%5d  %-24s %-10s %9.5f,%9.5f  +%d/-%d  %s\n",
				l.ID, l.Name, l.Category, l.Lat, l.Lng, l.Likes, l.Dislikes, season.Encode(l.Season))
		}
		fmt.Printf("\n%d locations, %s mode at zoom %d\n", len(matched), plan.Mode, filterZoom)
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterCategory, "category", "all", "Category, e.g. fruits or Herb")
	filterCmd.Flags().StringVar(&filterItem, "item", "all", "Item name")
	filterCmd.Flags().StringVar(&filterMonths, "months", "", "Months, e.g. \"6,7\" or \"June;Sept\"")
	filterCmd.Flags().IntVar(&filterZoom, "zoom", 14, "Zoom level used to pick markers or heatmap")
	filterCmd.Flags().BoolVar(&filterGeoJSON, "geojson", false, "Print the result as GeoJSON")
	rootCmd.AddCommand(filterCmd)
}
