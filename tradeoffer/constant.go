package tradeoffer

const (
	apiUrl       = "https://api.steampowered.com/IEconService"
	communityUrl = "https://steamcommunity.com"
)

type TradeOfferState int

const (
	StateInvalid                  TradeOfferState = 1
	StateActive                   TradeOfferState = 2
	StateAccepted                 TradeOfferState = 3
	StateCountered                TradeOfferState = 4
	StateExpired                  TradeOfferState = 5
	StateCanceled                 TradeOfferState = 6
	StateDeclined                 TradeOfferState = 7
	StateInvalidItems             TradeOfferState = 8
	StateCreatedNeedsConfirmation TradeOfferState = 9
	StateCanceledBySecondFactor   TradeOfferState = 10
	StateInEscrow                 TradeOfferState = 11
)

var stateNames = map[TradeOfferState]string{
	StateInvalid:                  "Invalid",
	StateActive:                   "Active",
	StateAccepted:                 "Accepted",
	StateCountered:                "Countered",
	StateExpired:                  "Expired",
	StateCanceled:                 "Canceled",
	StateDeclined:                 "Declined",
	StateInvalidItems:             "InvalidItems",
	StateCreatedNeedsConfirmation: "CreatedNeedsConfirmation",
	StateCanceledBySecondFactor:   "CanceledBySecondFactor",
	StateInEscrow:                 "InEscrow",
}

func (s TradeOfferState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

type ConfirmationMethod int

const (
	ConfirmationMethodNone   ConfirmationMethod = 0
	ConfirmationMethodEmail  ConfirmationMethod = 1
	ConfirmationMethodMobile ConfirmationMethod = 2
)
