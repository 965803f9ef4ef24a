package automation

import (
	"fmt"
	"time"

	"github.com/vuquang23/steamauto/classifier"
)

const (
	MinInterval     = 10 * time.Second
	MaxInterval     = time.Hour
	DefaultInterval = time.Minute

	// maxPendingTrades bounds the accepted trade ids carried between cycles.
	maxPendingTrades = 200
)

type Counters struct {
	Accepted  int       `json:"accepted"`
	Confirmed int       `json:"confirmed"`
	Errors    int       `json:"errors"`
	LastCheck time.Time `json:"last_check"`
}

// Policy is the persisted automation setup of one account together with its
// running counters.
type Policy struct {
	Interval            time.Duration    `json:"interval"`
	AutoAcceptGifts     bool             `json:"auto_accept_gifts"`
	AutoAcceptExchanges bool             `json:"auto_accept_exchanges"`
	AutoConfirmTrades   bool             `json:"auto_confirm_trades"`
	AutoConfirmMarket   bool             `json:"auto_confirm_market"`
	AllowRules          classifier.Rules `json:"allow_rules,omitempty"`
	Counters            Counters         `json:"counters"`
	// PendingTrades are offers accepted in earlier cycles that still wait for
	// a mobile confirmation.
	PendingTrades []uint64 `json:"pending_trades,omitempty"`
}

func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval}
}

func (p Policy) Validate() error {
	if p.Interval < MinInterval || p.Interval > MaxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidInterval, p.Interval, MinInterval, MaxInterval)
	}
	return p.AllowRules.Validate()
}

func (p Policy) classifierPolicy() classifier.Policy {
	return classifier.Policy{
		AcceptGifts:     p.AutoAcceptGifts,
		AcceptExchanges: p.AutoAcceptExchanges && len(p.AllowRules) != 0,
	}
}

func (p Policy) clone() Policy {
	c := p
	c.AllowRules = append(classifier.Rules(nil), p.AllowRules...)
	c.PendingTrades = append([]uint64(nil), p.PendingTrades...)
	return c
}
