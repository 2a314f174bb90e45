package core

import "strings"

// Provider is the canonical name of a supported platform or emote service.
type Provider string

const (
	Twitch  Provider = "twitch"
	Kick    Provider = "kick"
	YouTube Provider = "youtube"
	BTTV    Provider = "bttv"
	FFZ     Provider = "ffz"
	SevenTV Provider = "7tv"
)

// AllProviders lists every provider in fan-out order.
var AllProviders = []Provider{Twitch, YouTube, Kick, BTTV, FFZ, SevenTV}

var aliases = map[string]Provider{
	"twitch":         Twitch,
	"ttv":            Twitch,
	"tw":             Twitch,
	"kick":           Kick,
	"youtube":        YouTube,
	"yt":             YouTube,
	"bettertwitchtv": BTTV,
	"betterttv":      BTTV,
	"bttv":           BTTV,
	"frankerfacez":   FFZ,
	"ffz":            FFZ,
	"seventv":        SevenTV,
	"stv":            SevenTV,
	"7tv":            SevenTV,
}

// LookupAlias maps a case-insensitive alias onto its canonical provider.
func LookupAlias(alias string) (Provider, bool) {
	p, ok := aliases[strings.ToLower(strings.TrimSpace(alias))]
	return p, ok
}

// Label is the human-facing provider name used in error messages.
func (p Provider) Label() string {
	switch p {
	case Twitch:
		return "Twitch"
	case Kick:
		return "Kick"
	case YouTube:
		return "YouTube"
	case BTTV:
		return "BetterTTV"
	case FFZ:
		return "FrankerFaceZ"
	case SevenTV:
		return "7TV"
	}
	return string(p)
}

func (p Provider) Valid() bool {
	switch p {
	case Twitch, Kick, YouTube, BTTV, FFZ, SevenTV:
		return true
	}
	return false
}

func (p Provider) String() string { return string(p) }
