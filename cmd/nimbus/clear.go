package main

import (
	"github.com/sandevgo/nimbus/pkg/log"
	"github.com/spf13/cobra"
)

var clearProfile bool

var clearCmd = &cobra.Command{
	Use:           "clear <user_id>",
	Short:         "Erase a user's stored memory",
	Long:          `Deletes all memory facts and conversation history for a user. With --profile the profile row is removed too; otherwise only the preferred city is reset.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		appCfg, db, mem, err := newMemoryOnly(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := mem.Clear(ctx, args[0], clearProfile)
		if err != nil {
			return err
		}

		logger.Info().
			Str("db", appCfg.GetDatabasePath()).
			Int64("facts_deleted", result.FactsDeleted).
			Int64("history_deleted", result.HistoryDeleted).
			Int64("profile_deleted", result.ProfileDeleted).
			Msg("memory cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearProfile, "profile", false, "also delete the user profile row")
	rootCmd.AddCommand(clearCmd)
}
