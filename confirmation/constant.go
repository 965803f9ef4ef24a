package confirmation

const baseUrl = "https://steamcommunity.com/mobileconf"

// Confirmation types reported by mobileconf/getlist.
const (
	typeTrade          = 2
	typeMarketListing  = 3
	typeMarketPurchase = 12
)

// maxAnswerAttempts bounds ajaxop calls for one confirmation. The second
// attempt signs a fresh key.
const maxAnswerAttempts = 2

const incorrectGuardText = "Steam Guard Mobile Authenticator is providing incorrect Steam Guard codes."
