package timesource

import (
	"context"
	"net/url"
	"time"
)

// DefaultTimeAPIURL is the public timeapi.io endpoint.
const DefaultTimeAPIURL = "https://timeapi.io"

// timeapi.io reports local time without an offset and with up to seven
// fractional digits.
const timeAPILocalLayout = "2006-01-02T15:04:05.9999999"

// TimeAPI queries timeapi.io by zone name, or by IP address when Zone is
// empty.
type TimeAPI struct {
	Client

	// Zone is an IANA zone name, e.g. "Europe/Zurich"
	Zone string

	// IPAddress is used when Zone is empty
	IPAddress string
}

type utcOffset struct {
	Seconds int `json:"seconds"`
}

type timeAPIResponse struct {
	TimeZone          string    `json:"timeZone"`
	CurrentLocalTime  string    `json:"currentLocalTime"`
	CurrentUTCOffset  utcOffset `json:"currentUtcOffset"`
	StandardUTCOffset utcOffset `json:"standardUtcOffset"`
}

// NewTimeAPI creates a source for the public timeapi.io service.
func NewTimeAPI(zone string) *TimeAPI {
	return NewTimeAPIWithURL(DefaultTimeAPIURL, zone)
}

// NewTimeAPIWithURL creates a source for a compatible service at baseURL.
func NewTimeAPIWithURL(baseURL, zone string) *TimeAPI {
	return &TimeAPI{Client: newClient(baseURL), Zone: zone}
}

// Name implements Source.
func (t *TimeAPI) Name() string { return "timeapi" }

// Fetch implements Source.
func (t *TimeAPI) Fetch(ctx context.Context) (Info, error) {
	var path string
	switch {
	case t.Zone != "":
		path = "/api/timezone/zone?timeZone=" + url.QueryEscape(t.Zone)
	case t.IPAddress != "":
		path = "/api/timezone/ip?ipAddress=" + url.QueryEscape(t.IPAddress)
	default:
		return Info{}, NewConfigError("timeapi needs a zone or an IP address")
	}

	var resp timeAPIResponse
	if err := t.getJSON(ctx, path, &resp); err != nil {
		return Info{}, err
	}

	local, err := time.Parse(timeAPILocalLayout, resp.CurrentLocalTime)
	if err != nil {
		return Info{}, NewParseError("invalid currentLocalTime", err)
	}
	if resp.TimeZone == "" {
		return Info{}, NewParseError("response has no timeZone", nil)
	}

	current := time.Duration(resp.CurrentUTCOffset.Seconds) * time.Second
	standard := time.Duration(resp.StandardUTCOffset.Seconds) * time.Second

	return Info{
		// local was parsed as UTC wall clock; shift it back by the offset.
		UTC:       local.Add(-current),
		Timezone:  resp.TimeZone,
		RawOffset: standard,
		DSTOffset: current - standard,
	}, nil
}
