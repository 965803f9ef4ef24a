package tradeoffer

import "fmt"

// SteamError is an answer Steam gave on purpose, such as a strError on
// accept. Retrying it does not help.
type SteamError struct {
	msg string
}

func (e *SteamError) Error() string {
	return e.msg
}

func newSteamErrorf(format string, a ...interface{}) *SteamError {
	return &SteamError{fmt.Sprintf(format, a...)}
}
