// Command feedctl drives the feed and profile controllers against a backend
// from a terminal, and can serve a seeded demo backend for local runs.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"vibeweb/internal/api"
	"vibeweb/internal/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "feedctl",
	Short: "Inspect feeds and profiles of a vibeweb backend",
	Long: `feedctl talks to the same REST backend as the web front end.

Settings can also come from the environment:
  FEEDCTL_API    backend base URL
  FEEDCTL_TOKEN  bearer token from "feedctl login"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env := "production"
		if verbose {
			env = "development"
		}
		observability.SetLogger(observability.NewLogger(cmd.ErrOrStderr(), env))
	},
}

func init() {
	viper.SetEnvPrefix("FEEDCTL")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall operation timeout")
	rootCmd.PersistentFlags().String("api", "http://localhost:3001", "Backend base URL")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (see the login command)")
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(demoBackendCmd)
}

func newClient() (*api.Client, error) {
	return api.New(api.Options{
		BaseURL: strings.TrimRight(viper.GetString("api"), "/"),
		Timeout: 10 * time.Second,
	})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
