package automation

import (
	"github.com/vuquang23/steamauto/steamid"
)

// Account identifies one managed Steam account. It does not change after load.
type Account struct {
	Name      string          `mapstructure:"name" yaml:"name" json:"name"`
	Login     string          `mapstructure:"login" yaml:"login" json:"login"`
	GuardPath string          `mapstructure:"guard_path" yaml:"guard_path" json:"guard_path"`
	SteamID   steamid.SteamId `mapstructure:"steam_id" yaml:"steam_id" json:"steam_id,string"`
	ProxyRef  string          `mapstructure:"proxy" yaml:"proxy,omitempty" json:"proxy,omitempty"`
}
