// Command parsectl runs the parse orchestrator from the command line
// against a running model service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/modelclient"
	"github.com/tedgoddard/Stanford/internal/registry"
	"go.uber.org/zap"
)

var (
	modelURL string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "parsectl",
	Short:         "Parse sentences with every configured strategy",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelURL, "model-url", "", "model service URL (overrides MODEL_SERVICE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level to stderr")
	rootCmd.AddCommand(parseCmd, modelsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// setup loads configuration and builds an unloaded registry.
func setup() (*config.Config, *registry.Registry, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if modelURL != "" {
		cfg.ModelServiceURL = modelURL
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.OutputPaths = []string{"stderr"}
	if !verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, nil, err
	}

	client := modelclient.NewClient(cfg.ModelServiceURL, nil, logger)
	return cfg, registry.New(client.Loaders(cfg), cfg.ModelMaxInflight, logger), logger, nil
}
