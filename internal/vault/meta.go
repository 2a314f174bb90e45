package vault

import (
	"fmt"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/textutil"
)

// PageMeta is the title and preview image of an entity page.
type PageMeta struct {
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

func EmoteMeta(e core.Emote) PageMeta {
	return PageMeta{Title: fmt.Sprintf("%s - %s", e.Name, e.Provider.Label()), Image: textutil.PageImage(e.Images)}
}

func BadgeMeta(b core.Badge) PageMeta {
	return PageMeta{Title: fmt.Sprintf("%s - %s", b.Name, b.Provider.Label()), Image: textutil.PageImage(b.Images)}
}

func SetMeta(s core.Set) PageMeta {
	title := s.Name
	if title == "" {
		title = s.Subtitle
	}
	if title == "" {
		title = s.ID
	}
	meta := PageMeta{Title: fmt.Sprintf("%s - %s", title, s.Provider.Label())}
	if len(s.Emotes) > 0 {
		meta.Image = textutil.PageImage([]string{s.Emotes[0].Image})
	}
	return meta
}

func ChannelMeta(c core.ChannelData) PageMeta {
	return PageMeta{
		Title: fmt.Sprintf("%s - %s", c.User.Username, c.Provider.Label()),
		Image: textutil.PageImage([]string{c.User.Images.Avatar}),
	}
}
