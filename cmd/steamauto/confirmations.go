package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/confirmation"
	"github.com/vuquang23/steamauto/internal/app"
)

var (
	approveTrades bool
	approveMarket bool
	byOffer       bool
)

var confirmationsCmd = &cobra.Command{
	Use:     "confirmations",
	Aliases: []string{"conf"},
	Short:   "Inspect and answer mobile confirmations",
}

var confirmationsListCmd = &cobra.Command{
	Use:   "list <account>",
	Short: "List pending confirmations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		syncClock(ctx, acc)
		confs, err := acc.Confirmations.ListPending(ctx)
		if err != nil {
			return err
		}
		dump(confs)
		rows := make([][]string, 0, len(confs))
		for _, c := range confs {
			rows = append(rows, []string{
				c.ID,
				c.Kind().String(),
				c.CreatorID,
				c.Headline,
				strings.Join(c.Summary, "; "),
				time.Unix(int64(c.CreationTime), 0).Local().Format("2006-01-02 15:04"),
			})
		}
		printTable([]string{"id", "kind", "creator", "headline", "summary", "created"}, rows)
		return nil
	},
}

var confirmationsApproveCmd = &cobra.Command{
	Use:   "approve <account> <id>...",
	Short: "Approve confirmations by id, or by trade offer id with --offer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return answer(cmd, args, true)
	},
}

var confirmationsDenyCmd = &cobra.Command{
	Use:   "deny <account> <id>...",
	Short: "Deny confirmations by id, or by trade offer id with --offer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return answer(cmd, args, false)
	},
}

var confirmationsApproveAllCmd = &cobra.Command{
	Use:   "approve-all <account>",
	Short: "Approve every pending confirmation of the selected kinds",
	Long: `Approve every pending confirmation of the selected kinds. Without
--trades or --market every confirmation, including unknown kinds, is approved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		syncClock(ctx, acc)
		res, err := acc.Confirmations.ApproveAll(ctx, selection())
		if err != nil {
			return err
		}
		dump(res)
		for _, o := range res.Succeeded {
			printSuccess("approved %s (%s)", o.Confirmation.ID, o.Confirmation.Kind())
		}
		for _, o := range res.Failed {
			printError("failed %s (%s): %v", o.Confirmation.ID, o.Confirmation.Kind(), o.Err)
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d of %d confirmations failed", len(res.Failed), len(res.Failed)+len(res.Succeeded))
		}
		return nil
	},
}

func init() {
	confirmationsApproveAllCmd.Flags().BoolVar(&approveTrades, "trades", false, "approve trade confirmations")
	confirmationsApproveCmd.Flags().BoolVar(&byOffer, "offer", false, "treat ids as trade offer ids")
	confirmationsDenyCmd.Flags().BoolVar(&byOffer, "offer", false, "treat ids as trade offer ids")
	confirmationsApproveAllCmd.Flags().BoolVar(&approveMarket, "market", false, "approve market confirmations")
	confirmationsCmd.AddCommand(confirmationsListCmd, confirmationsApproveCmd, confirmationsDenyCmd, confirmationsApproveAllCmd)
}

func selection() confirmation.Predicate {
	if !approveTrades && !approveMarket {
		return confirmation.Any()
	}
	var preds []confirmation.Predicate
	if approveTrades {
		preds = append(preds, func(c *confirmation.Confirmation) bool { return c.Kind() == confirmation.KindTrade })
	}
	if approveMarket {
		preds = append(preds, confirmation.MarketOnly())
	}
	return confirmation.Or(preds...)
}

func answer(cmd *cobra.Command, args []string, approve bool) error {
	ctx := cmd.Context()
	a, acc, err := account(ctx, args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	syncClock(ctx, acc)
	lookup, err := finder(ctx, acc)
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range args[1:] {
		c, err := lookup(id)
		if err != nil {
			printError("%s: %v", id, err)
			failed++
			continue
		}
		if approve {
			err = acc.Confirmations.Approve(ctx, c)
		} else {
			err = acc.Confirmations.Deny(ctx, c)
		}
		if err != nil {
			printError("%s: %v", id, err)
			failed++
			continue
		}
		printSuccess("%s done", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d confirmations failed", failed, len(args)-1)
	}
	return nil
}

// finder resolves command line ids to pending confirmations. With --offer the
// ids name trade offers and are matched against each confirmation's linked id.
func finder(ctx context.Context, acc *app.Account) (func(string) (*confirmation.Confirmation, error), error) {
	if byOffer {
		return func(id string) (*confirmation.Confirmation, error) {
			offerID, err := strconv.ParseUint(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid offer id %q", id)
			}
			return acc.Confirmations.Find(ctx, offerID)
		}, nil
	}

	confs, err := acc.Confirmations.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*confirmation.Confirmation, len(confs))
	for _, c := range confs {
		byID[c.ID] = c
	}
	return func(id string) (*confirmation.Confirmation, error) {
		c, ok := byID[id]
		if !ok {
			return nil, confirmation.ErrConfirmationNotFound
		}
		return c, nil
	}, nil
}

func syncClock(ctx context.Context, acc *app.Account) {
	if err := acc.Confirmations.UpdateTimeOffset(ctx); err != nil {
		printWarning("server time sync failed, signing with the local clock: %v", err)
	}
}
