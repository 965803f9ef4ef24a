package steamid

import (
	"errors"
	"strconv"
)

// individualBase is the SteamID64 of account id 0 in the public universe.
const individualBase uint64 = 76561197960265728

var ErrInvalidSteamID = errors.New("invalid steam id")

type SteamId uint64

func Parse(s string) (SteamId, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, ErrInvalidSteamID
	}
	if v <= 0xFFFFFFFF {
		return FromAccountId(uint32(v)), nil
	}
	return SteamId(v), nil
}

func FromAccountId(accountId uint32) SteamId {
	return SteamId(individualBase + uint64(accountId))
}

func (s SteamId) GetAccountId() uint32 {
	return uint32(uint64(s) & 0xFFFFFFFF)
}

func (s SteamId) ToString() string {
	return strconv.FormatUint(uint64(s), 10)
}

func (s SteamId) String() string {
	return s.ToString()
}

func (s SteamId) IsZero() bool {
	return s == 0
}
