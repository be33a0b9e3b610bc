package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bitor-console/internal/types"
)

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change stored settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored settings, or the defaults if none are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	})

	cmd.AddCommand(a.settingsSetCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Erase the stored settings so the configured defaults apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear settings: %w", err)
			}
			a.logger.Info("stored settings cleared")
			return nil
		},
	})

	return cmd
}

func (a *app) settingsSetCmd() *cobra.Command {
	var (
		theme           string
		notifications   bool
		autoRefresh     bool
		refreshInterval int
		language        string
		timezone        string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual settings; unset flags keep their stored value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := &types.AppSettings{}
			if flags.Changed("theme") {
				patch.Theme = types.Theme(theme)
			}
			if flags.Changed("notifications") {
				patch.Notifications = types.Bool(notifications)
			}
			if flags.Changed("auto-refresh") {
				patch.AutoRefresh = types.Bool(autoRefresh)
			}
			if flags.Changed("refresh-interval") {
				patch.RefreshInterval = types.Int(refreshInterval)
			}
			if flags.Changed("language") {
				patch.Language = language
			}
			if flags.Changed("timezone") {
				patch.Timezone = timezone
			}

			repo, err := a.openRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			cur, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			next := cur.Merge(patch)
			if err := repo.Save(cmd.Context(), next); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), next)
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "light, dark or auto")
	cmd.Flags().BoolVar(&notifications, "notifications", false, "forward messages to Telegram")
	cmd.Flags().BoolVar(&autoRefresh, "auto-refresh", false, "poll the backend for new messages")
	cmd.Flags().IntVar(&refreshInterval, "refresh-interval", 0, "poll period in seconds (0 uses refresh.default_interval)")
	cmd.Flags().StringVar(&language, "language", "", "UI language code")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone used for timestamps")

	return cmd
}
