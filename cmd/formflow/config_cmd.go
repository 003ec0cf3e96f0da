package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or change CLI defaults",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved CLI settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config:   %s\n", configPath)
		fmt.Fprintf(out, "server:   %s\n", serverURL)
		fmt.Fprintf(out, "caller:   %s\n", caller)
		fmt.Fprintf(out, "token:    %s\n", mask(token))
		fmt.Fprintf(out, "nats_url: %s\n", natsURL)
		fmt.Fprintf(out, "color:    %s\n", colorFlag)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a default (server, token, caller, nats_url, color)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("no config path; pass --config")
		}
		cfg, err := loadCLIConfig(configPath)
		if err != nil {
			return err
		}
		if !cfg.set(args[0], args[1]) {
			return fmt.Errorf("unknown key %q", args[0])
		}
		if err := saveCLIConfig(configPath, cfg); err != nil {
			return fmt.Errorf("write %s: %w", configPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], configPath)
		return nil
	},
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
