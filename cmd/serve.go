package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sussexdowns/Foodshare/internal/feedback"
	"github.com/Sussexdowns/Foodshare/internal/loader"
	"github.com/Sussexdowns/Foodshare/internal/store"
	"github.com/Sussexdowns/Foodshare/internal/web"
)

var (
	serveHost    string
	servePort    int
	serveRestore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive map web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("host") {
			serveHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}

		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		locs := store.NewLocationStore()
		sub := feedback.NewSubmitter(cfg.Feedback.Endpoint, cfg.Feedback.Columns, cfg.Fetch.TimeoutDuration(), logger)
		defer sub.Wait()

		srv := &web.Server{
			Store:     s,
			Locations: locs,
			Loader:    loader.New(cfg, locs, logger),
			Submitter: sub,
			Render:    renderConfig(cfg),
			Addr:      fmt.Sprintf("%s:%d", serveHost, servePort),
			Logger:    logger,

			SessionIdle: cfg.Server.SessionIdleDuration(),
		}

		if serveRestore {
			n, err := srv.Restore()
			if err != nil {
				return err
			}
			logVerbose("restored %d locations from snapshot", n)
		}
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveRestore, "restore", true, "Start from the saved snapshot when one exists")
	rootCmd.AddCommand(serveCmd)
}
