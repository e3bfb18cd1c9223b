package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boristopalov/smbgym/pkg/config"
	"github.com/boristopalov/smbgym/pkg/telemetry"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "smbgym",
		Short:         "smbgym runs Super Mario Bros environments in parallel and smoke tests the environment API.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := config.Prepare(v, cfgFile); err != nil {
				return err
			}
			loaded, err := config.Decode(v)
			if err != nil {
				return err
			}
			cfg = loaded
			if !cfg.Logging.Verbose {
				log.SetOutput(io.Discard)
			}
			if cfg.Source != "" {
				log.Printf("using config file %s", cfg.Source)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./smbgym.yaml, then $HOME/.smbgym/config.yaml)")
	flags.Bool("verbose", false, "print operational logs")
	flags.String("metrics-addr", "", "serve /metrics and /healthz on this address, e.g. :9090")
	viper.BindPFlag("logging.verbose", flags.Lookup("verbose"))
	viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))

	rootCmd.AddCommand(
		newVectorizedCmd(),
		newSmokeCmd(),
		newEnvsCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// commandContext is cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// withMetrics serves the default prometheus registry while fn runs, if an
// address is configured.
func withMetrics(fn func() error) error {
	if cfg.Metrics.Addr == "" {
		return fn()
	}
	srv, err := telemetry.Start(cfg.Metrics.Addr, prometheus.DefaultGatherer)
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("metrics server shutdown: %v", err)
		}
	}()
	return fn()
}
