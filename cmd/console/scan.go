package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/pocketbase"
)

func (a *app) scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Inspect backend scans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "progress <scan-id>",
		Short: "Print the progress of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := pocketbase.NewClient(a.cfg.PocketBase, a.logger)
			progress, err := client.GetScanProgress(cmd.Context(), args[0])
			if err != nil {
				a.logger.Error("failed to fetch scan progress",
					"scan_id", args[0],
					"error", err,
					"retryable", apperrors.IsRetryable(err),
				)
				return err
			}
			return printJSON(cmd.OutOrStdout(), progress)
		},
	})

	return cmd
}

func (a *app) messagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List or acknowledge backend messages",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List messages for the configured PocketBase user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.PocketBase.UserID == "" {
				return fmt.Errorf("pocketbase.user_id is not configured")
			}
			client := pocketbase.NewClient(a.cfg.PocketBase, a.logger)
			msgs, err := client.ListUserMessages(cmd.Context(), a.cfg.PocketBase.UserID, !all)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), msgs)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include messages already read")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "read <message-id>",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := pocketbase.NewClient(a.cfg.PocketBase, a.logger)
			return client.MarkRead(cmd.Context(), args[0])
		},
	})

	return cmd
}
