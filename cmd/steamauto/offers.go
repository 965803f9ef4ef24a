package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/classifier"
	"github.com/vuquang23/steamauto/internal/app"
	"github.com/vuquang23/steamauto/storage"
	"github.com/vuquang23/steamauto/tradeoffer"
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Inspect and act on trade offers",
}

var offersListCmd = &cobra.Command{
	Use:   "list <account>",
	Short: "List active trade offers and how the policy classifies them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := acc.Trades.ActiveOffers(ctx)
		if err != nil {
			return err
		}
		dump(res)
		rules, err := allowRules(cmd, a, args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(res.Received)+len(res.Sent))
		for _, o := range res.Received {
			rows = append(rows, offerRow(o, "in", classifier.Classify(o, rules).String()))
		}
		for _, o := range res.Sent {
			rows = append(rows, offerRow(o, "out", "-"))
		}
		printTable([]string{"id", "direction", "partner", "state", "give", "receive", "class"}, rows)
		return nil
	},
}

var offersShowCmd = &cobra.Command{
	Use:   "show <account> <offer-id>",
	Short: "Show one trade offer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid offer id %q", args[1])
		}
		ctx := cmd.Context()
		a, acc, err := account(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := acc.Trades.GetOffer(ctx, id)
		if err != nil {
			return err
		}
		dump(res)
		dir := "out"
		if res.Offer.IsIncoming() {
			dir = "in"
		}
		printTable([]string{"id", "direction", "partner", "state", "give", "receive", "class"},
			[][]string{offerRow(res.Offer, dir, "-")})
		return nil
	},
}

var offersDeclineCmd = &cobra.Command{
	Use:   "decline <account> <offer-id>...",
	Short: "Decline received trade offers",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return offerAction(cmd, args, (*tradeoffer.Client).Decline)
	},
}

var offersCancelCmd = &cobra.Command{
	Use:   "cancel <account> <offer-id>...",
	Short: "Cancel sent trade offers",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return offerAction(cmd, args, (*tradeoffer.Client).Cancel)
	},
}

func init() {
	offersCmd.AddCommand(offersListCmd, offersShowCmd, offersDeclineCmd, offersCancelCmd)
}

// allowRules reads the account's stored allow rules; none are stored for an
// account that never ran.
func allowRules(cmd *cobra.Command, a *app.App, name string) (classifier.Rules, error) {
	p, err := a.Backend.Policies.Load(cmd.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.AllowRules, nil
}

func offerRow(o *tradeoffer.TradeOffer, direction, class string) []string {
	return []string{
		strconv.FormatUint(o.TradeOfferID, 10),
		direction,
		o.Partner().String(),
		o.State.String(),
		strconv.Itoa(len(o.ToGive)),
		strconv.Itoa(len(o.ToReceive)),
		class,
	}
}

func offerAction(cmd *cobra.Command, args []string, act func(*tradeoffer.Client, context.Context, uint64) error) error {
	ctx := cmd.Context()
	a, acc, err := account(ctx, args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	failed := 0
	for _, raw := range args[1:] {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil {
			err = act(acc.Trades, ctx, id)
		}
		if err != nil {
			printError("%s: %v", raw, err)
			failed++
			continue
		}
		printSuccess("%s done", raw)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d offers failed", failed, len(args)-1)
	}
	return nil
}
