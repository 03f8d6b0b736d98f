package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flutterctl/internal/app"
	"flutterctl/internal/domain"
	"flutterctl/internal/infra/isolate"
	"flutterctl/internal/infra/statestore"
	"flutterctl/internal/infra/supervisor"
	"flutterctl/internal/infra/vmservice"
)

type cliOptions struct {
	url        string
	projectDir string
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "flutterctl",
		Short: "Inspect and control running Flutter apps over the VM service",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg := zap.NewProductionConfig()
			cfg.OutputPaths = []string{"stderr"}
			cfg.ErrorOutputPaths = []string{"stderr"}
			if opts.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			} else {
				cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
			}
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.url, "url", "", "connect to an existing VM service at this WebSocket URL instead of managing a process")
	root.PersistentFlags().StringVar(&opts.projectDir, "project-dir", "", "Flutter project directory (defaults to the working directory)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging to stderr")

	root.AddCommand(
		newSnapshotCmd(&opts),
		newDetailsCmd(&opts),
		newLayoutCmd(&opts),
		newDumpRenderCmd(&opts),
		newDumpSemanticsCmd(&opts),
		newScreenshotCmd(&opts),
		newReloadCmd(&opts),
		newRestartCmd(&opts),
		newStatusCmd(&opts),
		newStopCmd(&opts),
	)

	return root
}

// resolveProjectDir falls back to the working directory so every command
// works from inside a Flutter project without flags.
func (o *cliOptions) resolveProjectDir() (string, error) {
	if o.projectDir != "" {
		return o.projectDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return dir, nil
}

func (o *cliOptions) newService() (*app.Service, error) {
	store, err := statestore.New(statestore.DefaultPath(), o.logger)
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(filepath.Dir(statestore.DefaultPath()), "logs")
	launcher := supervisor.NewFlutterLauncher(logDir, o.logger)

	dial := func(ctx context.Context, url string) (domain.Conn, error) {
		return vmservice.Connect(ctx, url, o.logger)
	}

	sup := supervisor.New(supervisor.Config{
		Store:    store,
		Dial:     supervisor.Dialer(dial),
		Launcher: launcher,
		Logger:   o.logger,
	})
	resolver := isolate.NewResolver(o.logger)
	return app.NewService(sup, resolver, app.Dialer(dial), o.logger), nil
}
