package main

import (
	"github.com/spf13/cobra"

	"github.com/TFMV/reconcile/api"
	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/metrics"
)

func newServeCommand() *cobra.Command {
	var (
		configPath  string
		port        string
		prefork     bool
		metricsFile string
		roots       []string
		databases   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reconcile API server",
		Long: `Start the HTTP API.

Routes:
  GET  /health    liveness check
  GET  /version   build information
  GET  /metrics   run counts, durations and the last run
  POST /compare   run a comparison job and return its summary

POST /compare always accepts samples. File sources must live under an
--allow-root directory and database sources need --allow-databases.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("prefork") {
				cfg.Server.Prefork = prefork
			}
			if cmd.Flags().Changed("allow-root") {
				cfg.Server.AllowedRoots = roots
			}
			if cmd.Flags().Changed("allow-databases") {
				cfg.Server.AllowDatabases = databases
			}

			var store metrics.MetricsStore
			if metricsFile != "" {
				store = &metrics.JSONMetricsStore{FilePath: metricsFile}
			}
			server := api.NewServer(api.ServerOptions{
				Port:      cfg.Server.Port,
				Prefork:   cfg.Server.Prefork,
				Logger:    logger.GetLogger(),
				Collector: metrics.NewCollector(store),

				AllowedRoots:   cfg.Server.AllowedRoots,
				AllowDatabases: cfg.Server.AllowDatabases,
			})
			return server.Start()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file with a server section")
	cmd.Flags().StringVarP(&port, "port", "p", "5555", "Port to listen on")
	cmd.Flags().BoolVar(&prefork, "prefork", false, "Use multiple OS processes")
	cmd.Flags().StringSliceVar(&roots, "allow-root", nil, "Directory POST /compare may read files from (repeatable)")
	cmd.Flags().BoolVar(&databases, "allow-databases", false, "Let POST /compare open DuckDB, Postgres and MySQL sources")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Append a JSON run record per comparison to this file")
	return cmd
}
