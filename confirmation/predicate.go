package confirmation

// Predicate selects confirmations for ApproveAll. Type-specific predicates
// never match KindUnknown; wrap them with AcceptUnknown to opt in.
type Predicate func(*Confirmation) bool

// ForTrades matches trade confirmations linked to one of ids.
func ForTrades(ids []uint64) Predicate {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(c *Confirmation) bool {
		if c.Kind() != KindTrade {
			return false
		}
		id, ok := c.LinkedID()
		if !ok {
			return false
		}
		_, ok = set[id]
		return ok
	}
}

func MarketOnly() Predicate {
	return func(c *Confirmation) bool {
		return c.Kind().IsMarket()
	}
}

func AcceptUnknown(p Predicate) Predicate {
	return func(c *Confirmation) bool {
		return c.Kind() == KindUnknown || p(c)
	}
}

func Any() Predicate {
	return func(*Confirmation) bool { return true }
}

func None() Predicate {
	return func(*Confirmation) bool { return false }
}

func Or(preds ...Predicate) Predicate {
	return func(c *Confirmation) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}
}
