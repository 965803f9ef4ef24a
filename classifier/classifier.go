// Package classifier labels trade offers by what the account gives up.
// Classification is pure: the same offer and rules always give the same class.
package classifier

import (
	"errors"
	"strconv"

	"github.com/vuquang23/steamauto/tradeoffer"
)

type Class int

const (
	// Nothing moves in either direction.
	Nothing Class = iota
	// Gift receives items and gives none.
	Gift
	// AcceptableExchange gives items covered by an allow rule.
	AcceptableExchange
	// GiveAway gives items no allow rule covers.
	GiveAway
)

func (c Class) String() string {
	switch c {
	case Gift:
		return "gift"
	case AcceptableExchange:
		return "acceptable_exchange"
	case GiveAway:
		return "give_away"
	default:
		return "nothing"
	}
}

var ErrEmptyRule = errors.New("allow rule names neither partners nor items")

// Rule allows giving items away. Partners restricts the trade partner by
// account id; Items restricts every given item by appid_contextid_assetid or
// by class id. Both lists set means both must hold.
type Rule struct {
	Name     string   `mapstructure:"name" yaml:"name" json:"name"`
	Partners []uint32 `mapstructure:"partners" yaml:"partners" json:"partners"`
	Items    []string `mapstructure:"items" yaml:"items" json:"items"`
}

func (r Rule) Validate() error {
	if len(r.Partners) == 0 && len(r.Items) == 0 {
		return ErrEmptyRule
	}
	return nil
}

func (r Rule) Matches(offer *tradeoffer.TradeOffer) bool {
	if r.Validate() != nil {
		return false
	}
	if len(r.Partners) != 0 && !containsPartner(r.Partners, offer.OtherAccountID) {
		return false
	}
	if len(r.Items) != 0 {
		for _, item := range offer.ToGive {
			if !containsItem(r.Items, item) {
				return false
			}
		}
	}
	return true
}

type Rules []Rule

func (rs Rules) Validate() error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Match returns the first rule covering offer.
func (rs Rules) Match(offer *tradeoffer.TradeOffer) (Rule, bool) {
	for _, r := range rs {
		if r.Matches(offer) {
			return r, true
		}
	}
	return Rule{}, false
}

func Classify(offer *tradeoffer.TradeOffer, rules Rules) Class {
	gives, receives := len(offer.ToGive) != 0, len(offer.ToReceive) != 0
	switch {
	case !gives && !receives:
		return Nothing
	case !gives:
		return Gift
	}
	if _, ok := rules.Match(offer); ok {
		return AcceptableExchange
	}
	return GiveAway
}

// Policy says which classes may be accepted without the operator.
type Policy struct {
	AcceptGifts     bool
	AcceptExchanges bool
}

// Eligible never returns true for GiveAway or Nothing.
func Eligible(class Class, policy Policy) bool {
	switch class {
	case Gift:
		return policy.AcceptGifts
	case AcceptableExchange:
		return policy.AcceptExchanges
	default:
		return false
	}
}

func containsPartner(partners []uint32, id uint32) bool {
	for _, p := range partners {
		if p == id {
			return true
		}
	}
	return false
}

func containsItem(items []string, item *tradeoffer.EconItem) bool {
	key := item.Key()
	classID := strconv.FormatUint(item.ClassID, 10)
	for _, it := range items {
		if it == key || it == classID {
			return true
		}
	}
	return false
}
