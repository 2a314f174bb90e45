package core

import "time"

// Emote is the normalized emote record returned by every provider adapter.
type Emote struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Provider  Provider   `json:"provider"`
	Source    string     `json:"source,omitempty"`
	Owner     *User      `json:"owner"`
	Artist    *User      `json:"artist"`
	Images    []string   `json:"images"`
	AltImage  string     `json:"altImage,omitempty"`
	SetID     string     `json:"setId,omitempty"`
	Tags      []string   `json:"tags"`
	Channels  Channels   `json:"channels"`
	CreatedAt *time.Time `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	Type      string     `json:"type"`
	Tier      *int       `json:"tier,omitempty"`
	Cost      *int       `json:"cost,omitempty"`
	Approved  bool       `json:"approved"`
	Public    bool       `json:"public"`
	Animated  bool       `json:"animated"`
	ZeroWidth bool       `json:"zeroWidth"`
	Global    bool       `json:"global"`
	Deleted   bool       `json:"deleted"`
}

// Emotes is the lightweight emote summary used inside sets, channel buckets
// and the global index.
type Emotes struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	Owner     string   `json:"owner,omitempty"`
	ZeroWidth bool     `json:"zeroWidth,omitempty"`
	BitsCost  int      `json:"bitsCost,omitempty"`
	Value     string   `json:"value,omitempty"`
	Provider  Provider `json:"provider"`
}

// Badge is the normalized badge record.
type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Provider    Provider   `json:"provider"`
	Owner       *User      `json:"owner"`
	Images      []string   `json:"images"`
	SetID       string     `json:"setId,omitempty"`
	Version     string     `json:"version"`
	Description string     `json:"description,omitempty"`
	ClickAction string     `json:"clickAction,omitempty"`
	ClickURL    string     `json:"clickURL,omitempty"`
	Related     Related    `json:"related"`
	Type        string     `json:"type,omitempty"`
	Global      bool       `json:"global"`
	Tier        *int       `json:"tier,omitempty"`
	Cost        *int       `json:"cost,omitempty"`
	Source      string     `json:"source,omitempty"`
	CreatedAt   *time.Time `json:"createdAt"`
}

// Badges is the lightweight badge summary used in channel buckets, the global
// index and Badge.Related.
type Badges struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Value       string   `json:"value,omitempty"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	ClickAction string   `json:"clickAction,omitempty"`
	ClickURL    string   `json:"clickURL,omitempty"`
	Type        string   `json:"type,omitempty"`
	Image       string   `json:"image"`
	Provider    Provider `json:"provider"`
}

// Related lists sibling badges (same id, different version).
type Related struct {
	Total int      `json:"total"`
	List  []Badges `json:"list"`
}

// User identifies an owner, artist or channel account on some platform.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Platform string `json:"platform"`
	Source   string `json:"source"`
}

// Channel is one entry of an emote's channel-usage list.
type Channel struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Platform string `json:"platform"`
	PosID    string `json:"posId,omitempty"`
}

// Channels summarizes who uses an emote. List may be a partial page of Total.
type Channels struct {
	Total int       `json:"total"`
	List  []Channel `json:"list"`
}

// Set is an emote set (global set, subscription tier, 7TV set, FFZ collection).
type Set struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
	MainSet  bool     `json:"mainSet,omitempty"`
	Tags     []string `json:"tags"`
	Owner    *User    `json:"owner"`
	Emotes   []Emotes `json:"emotes"`
	Source   string   `json:"source"`
	Provider Provider `json:"provider"`
}

// ChannelProvider groups the sets a third-party provider serves for one channel.
type ChannelProvider struct {
	Provider Provider `json:"provider"`
	Bots     []string `json:"bots"`
	Sets     []Set    `json:"sets"`
}

// ChannelData is the full channel profile page.
type ChannelData struct {
	Provider Provider       `json:"provider"`
	Source   string         `json:"source"`
	User     UserData       `json:"user"`
	Content  ChannelContent `json:"content"`
}

type UserData struct {
	ID              string      `json:"id"`
	Color           string      `json:"color,omitempty"`
	BackgroundColor string      `json:"backgroundColor"`
	CreatedAt       *time.Time  `json:"createdAt"`
	Bio             string      `json:"bio,omitempty"`
	Username        string      `json:"username"`
	Roles           Roles       `json:"roles"`
	Followers       int         `json:"followers"`
	Socials         []Social    `json:"socials"`
	Badge           *UserBadge  `json:"badge"`
	Images          UserImages  `json:"images"`
	Stream          *StreamInfo `json:"stream"`
}

type UserBadge struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version string `json:"version"`
	Image   string `json:"image"`
}

type UserImages struct {
	Avatar  string `json:"avatar"`
	Banner  string `json:"banner,omitempty"`
	Offline string `json:"offline,omitempty"`
}

type Social struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

type Roles struct {
	IsAffiliate bool  `json:"isAffiliate"`
	IsPartner   bool  `json:"isPartner"`
	IsStaff     *bool `json:"isStaff"`
}

type StreamInfo struct {
	Title     string        `json:"title"`
	Language  string        `json:"language"`
	IsMature  bool          `json:"isMature"`
	CreatedAt *time.Time    `json:"createdAt"`
	Viewers   int           `json:"viewers"`
	Preview   string        `json:"preview"`
	Category  *CategoryInfo `json:"category"`
}

type CategoryInfo struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	BoxArt string `json:"boxArt,omitempty"`
}

// ChannelContent buckets a channel's emotes and badges by how they are unlocked.
type ChannelContent struct {
	Follower EmoteBadge `json:"follower"`
	Bits     EmoteBadge `json:"bits"`
	Sub      *SubTier   `json:"sub"`
	SubT2    *SubTier   `json:"subT2"`
	SubT3    *SubTier   `json:"subT3"`
	Points   *Points    `json:"points,omitempty"`
}

// Points is the channel-points currency of a Twitch channel.
type Points struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

type EmoteBadge struct {
	Emotes []Emotes `json:"emotes"`
	Badges []Badges `json:"badges"`
}

type SubTier struct {
	Title  string   `json:"title,omitempty"`
	Emotes []Emotes `json:"emotes"`
	Flair  string   `json:"flair,omitempty"`
	Badges []Badges `json:"badges"`
}

// Extras is provenance enrichment attached to an emote or badge page.
type Extras struct {
	CreatedAt *time.Time     `json:"createdAt"`
	DeletedAt *time.Time     `json:"deletedAt"`
	Artist    *User          `json:"artist,omitempty"`
	Image     string         `json:"image,omitempty"`
	Tier      *int           `json:"tier,omitempty"`
	Cost      *int           `json:"cost,omitempty"`
	Type      string         `json:"type,omitempty"`
	Related   RelatedEmotes  `json:"related"`
	Origin    []OriginRecord `json:"origin"`
}

type RelatedEmotes struct {
	Total int      `json:"total"`
	List  []Emotes `json:"list"`
}

// OriginRecord is one provenance note shown on an entity page.
type OriginRecord struct {
	Source   string `json:"source"`
	Provider string `json:"provider"`
	Text     string `json:"text"`
	Notes    string `json:"notes,omitempty"`
	Artist   string `json:"artist,omitempty"`
}

// NewExtras returns an Extras with empty, non-nil lists.
func NewExtras() Extras {
	return Extras{
		Related: RelatedEmotes{List: []Emotes{}},
		Origin:  []OriginRecord{},
	}
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// TimePtr returns a pointer to t, or nil when t is zero.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ParseTime parses the timestamp shapes upstreams use (RFC 3339 with or
// without fractional seconds, or a bare date). Unparseable values yield nil.
func ParseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// UnixMillis converts a millisecond epoch into a time pointer; 0 yields nil.
func UnixMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
