package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/filtering"
	"github.com/spigell/karune-engine/internal/logger"
	"github.com/spigell/karune-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API over HTTP",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFilterFlags(cmd)
	},
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", ":8000", "address to listen on")
	serveCmd.Flags().Float64("min-score", 0, "drop recommendations scoring under this value")
	serveCmd.Flags().StringP("exclude-file", "e", "", "file listing sponsor and volunteer ids to never recommend")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the karune-engine api", zap.String("version", version))

	srv := server.New(serverConfig(config), logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}

func serverConfig(config *Config) server.Config {
	cfg := server.Config{Filters: filtering.Config{}}
	if config == nil {
		return cfg
	}

	cfg.Filters = config.Filters
	if config.Server != nil {
		cfg.Listen = config.Server.Listen
		cfg.MaxBodyBytes = config.Server.MaxBodyBytes
	}

	return cfg
}
