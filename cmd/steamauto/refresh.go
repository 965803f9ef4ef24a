package main

import (
	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/session"
)

var refreshToken string

var refreshCmd = &cobra.Command{
	Use:   "refresh <account>",
	Short: "Force a new web session for an account",
	Long: `Force a new web session for an account. With --refresh-token the stored
credential is replaced first, which clears a needs-reauth state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		var state *session.State
		if refreshToken != "" {
			state, err = acc.Session.Reset(ctx, refreshToken)
		} else {
			state, err = acc.Session.ForceRefresh(ctx)
		}
		if err != nil {
			return err
		}
		dump(state)
		printSuccess("Session for %s valid until %s", args[0], state.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "replace the stored refresh token")
}
