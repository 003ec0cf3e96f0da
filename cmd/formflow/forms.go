package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/formflow/internal/client"
	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Short:   "Create a draft form",
	GroupID: "forms",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")
		form, err := formsClient.CreateForm(context.Background(), &client.CreateFormRequest{
			GroupID: group,
			Title:   args[0],
		})
		if err != nil {
			return fmt.Errorf("creating form: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), form)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s in %s\n", form.ID, form.GroupID)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show details of a form",
	GroupID: "forms",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := formsClient.GetForm(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting form %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), form)
		}
		printFormTable(cmd.OutOrStdout(), form)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List forms",
	GroupID: "forms",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")
		owner, _ := cmd.Flags().GetString("owner")
		states, _ := cmd.Flags().GetStringSlice("state")
		limit, _ := cmd.Flags().GetInt("limit")

		forms, err := formsClient.ListForms(context.Background(), &client.ListFormsRequest{
			GroupID: group,
			OwnerID: owner,
			State:   states,
			Limit:   limit,
		})
		if err != nil {
			return fmt.Errorf("listing forms: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), forms)
		}
		printFormListTable(cmd.OutOrStdout(), forms)
		return nil
	},
}

// transitionSpec describes one state-changing command.
type transitionSpec struct {
	transition model.Transition
	short      string
	verb       string
}

var (
	publishSpec = transitionSpec{model.TransitionPublish, "Publish a draft form", "Published"}
	archiveSpec = transitionSpec{model.TransitionArchive, "Archive a published form", "Archived"}
	restoreSpec = transitionSpec{model.TransitionRestore, "Restore an archived form to draft", "Restored"}
)

func transitionCmd(spec transitionSpec) *cobra.Command {
	return &cobra.Command{
		Use:     spec.transition.String() + " <id>",
		Short:   spec.short,
		GroupID: "forms",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := formsClient.Transition(context.Background(), args[0], spec.transition)
			if err != nil {
				return fmt.Errorf("%s %s: %w", spec.transition, args[0], err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), form)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", spec.verb, form.ID, form.State)
			return nil
		},
	}
}

var destroyCmd = &cobra.Command{
	Use:     "destroy <id>",
	Short:   "Permanently delete a draft form",
	GroupID: "forms",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := formsClient.DestroyForm(context.Background(), args[0]); err != nil {
			return fmt.Errorf("destroying form %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Destroyed %s\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("group", "g", "", "collection the form belongs to (required)")
	_ = createCmd.MarkFlagRequired("group")

	listCmd.Flags().StringP("group", "g", "", "filter by collection")
	listCmd.Flags().String("owner", "", "filter by owner")
	listCmd.Flags().StringSliceP("state", "s", nil, "filter by state (repeatable)")
	listCmd.Flags().Int("limit", 0, "maximum number of forms")
}
