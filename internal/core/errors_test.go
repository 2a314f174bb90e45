package core

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessageShape(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{NotFound(Twitch, "Emote", "Not found"), "[Twitch] Emote | 404: Not found"},
		{Upstream(SevenTV, "Set", 503, "Service Unavailable"), "[7TV] Set | 503: Service Unavailable"},
		{Network(BTTV, "Emote", fmt.Errorf("dial tcp: timeout")), "[BetterTTV] Emote | dial tcp: timeout"},
		{&Error{Provider: FFZ, Status: 500, Detail: "boom"}, "[FrankerFaceZ] 500: boom"},
		{UnknownProvider("myspace", "Unknown provider"), `Unknown provider: "myspace"`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestUpstreamNotFoundKind(t *testing.T) {
	assert.Equal(t, KindNotFound, Upstream(Kick, "Channel", http.StatusNotFound, "").Kind)
	assert.Equal(t, KindUpstream, Upstream(Kick, "Channel", http.StatusTooManyRequests, "").Kind)
}

func TestKindAndStatusThroughWrapping(t *testing.T) {
	err := errors.Wrap(NotFound(YouTube, "Channel", "gone"), "lookup")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(UnknownProvider("x", "")))
	assert.Equal(t, http.StatusBadGateway, StatusOf(Network(Twitch, "Emote", fmt.Errorf("reset"))))
}

func TestLookupAlias(t *testing.T) {
	for alias, want := range map[string]Provider{
		"TTV":          Twitch,
		" yt ":         YouTube,
		"FrankerFaceZ": FFZ,
		"stv":          SevenTV,
	} {
		got, ok := LookupAlias(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, want, got, alias)
	}
	_, ok := LookupAlias("myspace")
	assert.False(t, ok)
}
