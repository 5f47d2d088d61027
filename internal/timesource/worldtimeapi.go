package timesource

import (
	"context"
	"time"
)

// DefaultWorldTimeAPIURL is the public worldtimeapi.org endpoint.
const DefaultWorldTimeAPIURL = "https://worldtimeapi.org"

// WorldTimeAPI resolves the caller's zone from its public IP.
type WorldTimeAPI struct {
	Client
}

type worldTimeResponse struct {
	UTCDatetime string `json:"utc_datetime"`
	Timezone    string `json:"timezone"`
	RawOffset   int    `json:"raw_offset"`
	DSTOffset   int    `json:"dst_offset"`
	DST         bool   `json:"dst"`
}

// NewWorldTimeAPI creates a source for the public worldtimeapi.org service.
func NewWorldTimeAPI() *WorldTimeAPI {
	return NewWorldTimeAPIWithURL(DefaultWorldTimeAPIURL)
}

// NewWorldTimeAPIWithURL creates a source for a compatible service at baseURL.
func NewWorldTimeAPIWithURL(baseURL string) *WorldTimeAPI {
	return &WorldTimeAPI{Client: newClient(baseURL)}
}

// Name implements Source.
func (w *WorldTimeAPI) Name() string { return "worldtimeapi" }

// Fetch implements Source.
func (w *WorldTimeAPI) Fetch(ctx context.Context) (Info, error) {
	var resp worldTimeResponse
	if err := w.getJSON(ctx, "/api/ip", &resp); err != nil {
		return Info{}, err
	}

	utc, err := time.Parse(time.RFC3339Nano, resp.UTCDatetime)
	if err != nil {
		return Info{}, NewParseError("invalid utc_datetime", err)
	}
	if resp.Timezone == "" {
		return Info{}, NewParseError("response has no timezone", nil)
	}

	info := Info{
		UTC:       utc.UTC(),
		Timezone:  resp.Timezone,
		RawOffset: time.Duration(resp.RawOffset) * time.Second,
	}
	if resp.DST {
		info.DSTOffset = time.Duration(resp.DSTOffset) * time.Second
	}
	return info, nil
}
