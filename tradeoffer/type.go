package tradeoffer

import (
	"fmt"

	"github.com/vuquang23/steamauto/steamid"
)

type EconItem struct {
	AppID      uint32 `json:"appid"`
	ContextID  uint64 `json:"contextid,string"`
	AssetID    uint64 `json:"assetid,string"`
	ClassID    uint64 `json:"classid,string"`
	InstanceID uint64 `json:"instanceid,string"`
	Amount     uint64 `json:"amount,string"`
	Missing    bool   `json:"missing"`
}

// Key is appid_contextid_assetid, the form used in allow rules.
func (i *EconItem) Key() string {
	return fmt.Sprintf("%d_%d_%d", i.AppID, i.ContextID, i.AssetID)
}

type TradeOffer struct {
	TradeOfferID       uint64             `json:"tradeofferid,string"`
	TradeID            uint64             `json:"tradeid,string,omitempty"`
	OtherAccountID     uint32             `json:"accountid_other"`
	Message            string             `json:"message"`
	ExpirationTime     uint32             `json:"expiration_time"`
	State              TradeOfferState    `json:"trade_offer_state"`
	ToGive             []*EconItem        `json:"items_to_give"`
	ToReceive          []*EconItem        `json:"items_to_receive"`
	IsOurOffer         bool               `json:"is_our_offer"`
	TimeCreated        uint32             `json:"time_created"`
	TimeUpdated        uint32             `json:"time_updated"`
	EscrowEndDate      uint32             `json:"escrow_end_date"`
	ConfirmationMethod ConfirmationMethod `json:"confirmation_method"`
}

func (o *TradeOffer) Partner() steamid.SteamId {
	return steamid.FromAccountId(o.OtherAccountID)
}

// IsIncoming reports whether the partner created the offer.
func (o *TradeOffer) IsIncoming() bool {
	return !o.IsOurOffer
}

type EconDescription struct {
	AppID          uint32 `json:"appid"`
	ClassID        uint64 `json:"classid,string"`
	InstanceID     uint64 `json:"instanceid,string"`
	MarketHashName string `json:"market_hash_name"`
	Tradable       bool   `json:"tradable"`
}

type TradeOfferResult struct {
	Offer        *TradeOffer        `json:"offer"`
	Descriptions []*EconDescription `json:"descriptions"`
}

type TradeOffersResult struct {
	Sent         []*TradeOffer      `json:"trade_offers_sent"`
	Received     []*TradeOffer      `json:"trade_offers_received"`
	Descriptions []*EconDescription `json:"descriptions"`
}

// GetOffersOptions selects what GetTradeOffers returns. At least one of Sent
// and Received must be set.
type GetOffersOptions struct {
	Sent                 bool
	Received             bool
	Descriptions         bool
	ActiveOnly           bool
	HistoricalOnly       bool
	TimeHistoricalCutoff *uint32
}

type AcceptResult struct {
	TradeID                 uint64 `json:"tradeid,string"`
	NeedsMobileConfirmation bool   `json:"needs_mobile_confirmation"`
	NeedsEmailConfirmation  bool   `json:"needs_email_confirmation"`
	EmailDomain             string `json:"email_domain"`
}
