package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/formflow/internal/client"
	"github.com/alfredjeanlab/formflow/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	token      string
	caller     string
	natsURL    string
	configPath string
	jsonOutput bool
	colorFlag  string

	formsClient client.FormsClient
)

var rootCmd = &cobra.Command{
	Use:           "formflow <command>",
	Short:         "Form lifecycle server and CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyCLIConfig(cmd); err != nil {
			return err
		}
		mode, err := ui.ParseColorMode(colorFlag)
		if err != nil {
			return err
		}
		mode.Apply(os.Stdout)
		formsClient = client.NewHTTPClient(serverURL, credentials())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if formsClient != nil {
			formsClient.Close()
		}
	},
}

func credentials() client.Credentials {
	return client.Credentials{Token: token, Caller: caller}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token")
	rootCmd.PersistentFlags().StringVar(&caller, "caller", "", "caller id sent as X-Caller-Id when no token is set")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "NATS URL for tail")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "CLI config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", string(ui.ColorAuto), "color output: auto, always or never")

	rootCmd.AddGroup(
		&cobra.Group{ID: "forms", Title: "Forms:"},
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Forms
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(transitionCmd(publishSpec))
	rootCmd.AddCommand(transitionCmd(archiveSpec))
	rootCmd.AddCommand(transitionCmd(restoreSpec))
	rootCmd.AddCommand(destroyCmd)

	// Events
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(subscribersCmd)
	rootCmd.AddCommand(pendingCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
