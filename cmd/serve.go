package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/randomall/internal/config"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP API",
	Long: `Start the HTTP API serving gens and lists.

Identity is taken from the X-User-ID, X-Username and X-User-Role headers set
by the upstream proxy.

Examples:
  randomall serve                      # Serve on localhost:8080
  randomall serve -p 9000 --host 0.0.0.0
  randomall serve --max-connections 512`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Int("max-connections", 0, "Maximum simultaneous connections (0 = unlimited)")
	serveCmd.Flags().Bool("watch-locales", false, "Reload locale overrides when they change")
	validateServeFlags(serveCmd)

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.max_connections", serveCmd.Flags().Lookup("max-connections"))
	viper.BindPFlag("locale.watch", serveCmd.Flags().Lookup("watch-locales"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := newCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load locale: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, server.Deps{
		Store:   store,
		Catalog: catalog,
		Events:  logging.NewLogEventSink(logger),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if cfg.Locale.Watch {
		g.Go(func() error {
			if err := catalog.Watch(gctx, logger); err != nil {
				return err
			}
			<-gctx.Done()
			return nil
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting randomall at http://%s\n", cfg.Server.Addr())
	return g.Wait()
}
