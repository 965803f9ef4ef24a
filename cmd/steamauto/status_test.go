package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/confirmation"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/tradeoffer"
)

func TestStatusRows(t *testing.T) {
	useColors = false
	rows := statusRows([]automation.Snapshot{
		{Name: "alpha", State: automation.StateSleeping, Counters: automation.Counters{Accepted: 2, Confirmed: 1}, PendingTrades: 1,
			Session: session.Status{HasSession: true, ExpiresAt: time.Date(2030, 1, 2, 3, 4, 0, 0, time.Local)}},
		{Name: "beta", State: automation.StateSuspended, LastError: "boom", Session: session.Status{NeedsReauth: true}},
	})
	assert.Equal(t, []string{"alpha", "sleeping", "2", "1", "0", "1", "2030-01-02 03:04", ""}, rows[0])
	assert.Equal(t, []string{"beta", "suspended", "0", "0", "0", "0", "needs reauth", "boom"}, rows[1])
}

func TestSelection(t *testing.T) {
	trade := &confirmation.Confirmation{Type: 2}
	listing := &confirmation.Confirmation{Type: 3}
	unknown := &confirmation.Confirmation{Type: 99}

	approveTrades, approveMarket = false, false
	assert.True(t, selection()(unknown))

	approveTrades, approveMarket = true, false
	assert.True(t, selection()(trade))
	assert.False(t, selection()(listing))

	approveTrades, approveMarket = false, true
	assert.False(t, selection()(trade))
	assert.True(t, selection()(listing))
	assert.False(t, selection()(unknown))
	approveMarket = false
}

func TestOfferRow(t *testing.T) {
	offer := &tradeoffer.TradeOffer{
		TradeOfferID:   42,
		OtherAccountID: 1,
		State:          tradeoffer.StateActive,
		ToReceive:      []*tradeoffer.EconItem{{}, {}},
	}
	assert.Equal(t, []string{"42", "in", "76561197960265729", "Active", "0", "2", "gift"}, offerRow(offer, "in", "gift"))
}
