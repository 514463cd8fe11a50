package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hanulsoft/blogpilot/pkg/api/v1/client"
)

// flag names
const (
	flagServerAddress = "server-address"
)

// environment variable names
const (
	envServerAddress = "BLOGPILOT_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	// Flag default; the env var wins when the flag is not set explicitly.
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", client.DefaultBaseURL, "Address of the blogpilot API server (env: BLOGPILOT_SERVER_ADDRESS)")

	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetTopicsCmd())
	RootCmd.AddCommand(GetCategoriesCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "blogpilot",
	Short: "blogpilot CLI - A command line interface for the posting pipeline",
	Long: `blogpilot CLI is a command line tool for starting and monitoring automated
blog posting jobs through the blogpilot API.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed(flagServerAddress) {
			if addr := os.Getenv(envServerAddress); addr != "" {
				serverAddress = addr
			}
		}
		return initClient()
	},
}
