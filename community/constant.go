package community

const (
	baseUrl          = "https://steamcommunity.com"
	finalizeLoginUrl = "https://login.steampowered.com/jwt/finalizelogin"
	loginRedirectUrl = "https://steamcommunity.com/login/home/?goto="
	generateTokenUrl = "https://api.steampowered.com/IAuthenticationService/GenerateAccessTokenForApp/v1/"
)

const CommunityHost = "steamcommunity.com"

const (
	CookieSteamLoginSecure = "steamLoginSecure"
	CookieSessionID        = "sessionid"
)

// transferAttempts bounds retries of a single transfer descriptor.
const transferAttempts = 5

// EResult values seen on the login endpoints.
const (
	eresultOK              = 1
	eresultFail            = 2
	eresultNoConnection    = 3
	eresultInvalidPassword = 5
	eresultBusy            = 10
	eresultAccessDenied    = 15
	eresultTimeout         = 16
	eresultServiceDown     = 20
	eresultNotLoggedOn     = 21
	eresultExpired         = 27
)
