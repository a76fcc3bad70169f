package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/biabot/internal/client"
)

type globalOptions struct {
	apiURL        string
	adminPassword string
	timeout       time.Duration
}

func (o *globalOptions) client() *client.Client {
	return client.New(client.Config{
		BaseURL:       o.apiURL,
		AdminPassword: o.adminPassword,
		Timeout:       o.timeout,
	})
}

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "biabot",
		Short: "biaBot - client intake assistant",
		Long: `biabot talks to a running biaBot API server.
Use "chat" to run an intake conversation and "admin" to manage client profiles,
service options, request logs and the Monday board connection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", envOr("BIABOT_API_URL", client.DefaultBaseURL), "API server base URL")
	rootCmd.PersistentFlags().StringVar(&opts.adminPassword, "admin-password", os.Getenv("BIABOT_ADMIN_PASSWORD"), "Admin password for admin commands")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "Request timeout")

	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newAdminCmd(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
