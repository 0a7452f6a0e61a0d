package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot contents",
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

		fmt.Printf("Snapshot Status\n")
		fmt.Printf("===============\n")
		fmt.Printf("Source:          %s\n", orNone(snap.Source))
		fmt.Printf("Taken at:        %s\n", orNone(snap.TakenAt))
		fmt.Printf("Locations:       %d\n", s.LocationCount())
		fmt.Printf("Loaded counties: %d\n", s.CountyCount())

		printCounts("Per-Category Breakdown", s.CountByCategory())
		if byCounty := s.CountByCounty(); len(byCounty) > 1 || byCounty[""] == 0 {
			printCounts("Per-County Breakdown", byCounty)
		}
		return nil
	},
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n%s\n", title)
	for range title {
		fmt.Print("-")
	}
	fmt.Println()

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %5d\n", orNone(k), counts[k])
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
