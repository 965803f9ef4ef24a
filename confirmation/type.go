package confirmation

import (
	"strconv"

	"go.uber.org/multierr"
)

type Confirmation struct {
	Type         uint64      `json:"type"`
	TypeName     string      `json:"type_name"`
	ID           string      `json:"id"`
	CreatorID    string      `json:"creator_id"`
	Nonce        string      `json:"nonce"`
	CreationTime uint64      `json:"creation_time"`
	Cancel       string      `json:"cancel"`
	Accept       string      `json:"accept"`
	Icon         string      `json:"icon"`
	Multi        bool        `json:"multi"`
	Headline     string      `json:"headline"`
	Summary      []string    `json:"summary"`
	Warn         interface{} `json:"warn"`

	// resolve fills CreatorID on first use when the list omitted it.
	resolve func() string
}

type Kind int

const (
	KindUnknown Kind = iota
	KindTrade
	KindMarketListing
	KindMarketPurchase
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindMarketListing:
		return "market-listing"
	case KindMarketPurchase:
		return "market-purchase"
	default:
		return "unknown"
	}
}

func (k Kind) IsMarket() bool {
	return k == KindMarketListing || k == KindMarketPurchase
}

func (c *Confirmation) Kind() Kind {
	switch c.Type {
	case typeTrade:
		return KindTrade
	case typeMarketListing:
		return KindMarketListing
	case typeMarketPurchase:
		return KindMarketPurchase
	default:
		return KindUnknown
	}
}

// LinkedID is the trade offer or market listing the confirmation approves.
func (c *Confirmation) LinkedID() (uint64, bool) {
	if c.CreatorID == "" && c.resolve != nil {
		c.CreatorID, c.resolve = c.resolve(), nil
	}
	if c.CreatorID == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(c.CreatorID, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

type Outcome struct {
	Confirmation *Confirmation
	Err          error
}

// Result of a bulk approval. Each selected confirmation lands in exactly one
// of the two lists.
type Result struct {
	Succeeded []Outcome
	Failed    []Outcome
}

func (r *Result) Err() error {
	var err error
	for _, o := range r.Failed {
		err = multierr.Append(err, o.Err)
	}
	return err
}

type listRes struct {
	Success  bool            `json:"success"`
	NeedAuth bool            `json:"needauth"`
	Message  string          `json:"message"`
	Detail   string          `json:"detail"`
	Conf     []*Confirmation `json:"conf"`
}

type answerRes struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type detailsRes struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
}
