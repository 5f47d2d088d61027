package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/guard"
	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/timesource"
)

// timeLayout is how timestamps appear in ToJSON.
const timeLayout = "2006-01-02 15:04:05"

// TimeSource reports the current time and zone; see package timesource.
type TimeSource interface {
	Fetch(ctx context.Context) (timesource.Info, error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now. Tests use it to pin the clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry holds the counters and the clock state behind ToJSON.
type Registry struct {
	now func() time.Time

	mu       sync.Mutex
	counters Counters
	start    time.Time     // host clock at creation or last Reset
	skew     time.Duration // fetched UTC minus host clock at last sync
	zone     string
	location *time.Location
	synced   bool
}

// New creates a registry with every counter at zero.
func New(opts ...Option) *Registry {
	r := &Registry{
		now:      time.Now,
		zone:     "UTC",
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Inc increments c. Unknown counters are ignored.
func (r *Registry) Inc(c Counter) {
	if !c.Valid() {
		return
	}
	defer guard.Acquire(&r.mu).Release()
	r.counters[c]++
}

// IncPriceFetch counts a successful price fetch.
func (r *Registry) IncPriceFetch() { r.Inc(PriceFetch) }

// IncPriceFetchFail counts a failed price fetch.
func (r *Registry) IncPriceFetchFail() { r.Inc(PriceFetchFail) }

// IncChartFetch counts a successful chart fetch.
func (r *Registry) IncChartFetch() { r.Inc(ChartFetch) }

// IncChartFetchFail counts a failed chart fetch.
func (r *Registry) IncChartFetchFail() { r.Inc(ChartFetchFail) }

// IncTimeFetch counts a successful time sync.
func (r *Registry) IncTimeFetch() { r.Inc(TimeFetch) }

// IncTimeFetchFail counts a failed time sync.
func (r *Registry) IncTimeFetchFail() { r.Inc(TimeFetchFail) }

// IncSettingsChange counts an applied settings document.
func (r *Registry) IncSettingsChange() { r.Inc(SettingsChange) }

// IncServerRequests counts a request handled by the config link.
func (r *Registry) IncServerRequests() { r.Inc(ServerRequest) }

// IncStationConnected counts a network station connect.
func (r *Registry) IncStationConnected() { r.Inc(StationConnected) }

// IncStationDisconnected counts a network station disconnect.
func (r *Registry) IncStationDisconnected() { r.Inc(StationDisconnected) }

// IncBrownout counts a brownout reset.
func (r *Registry) IncBrownout() { r.Inc(Brownout) }

// IncCrash counts a crash reset.
func (r *Registry) IncCrash() { r.Inc(Crash) }

// Get returns the current value of c.
func (r *Registry) Get(c Counter) uint32 {
	defer guard.Acquire(&r.mu).Release()
	return r.counters.Get(c)
}

// Snapshot returns a copy of every counter.
func (r *Registry) Snapshot() Counters {
	defer guard.Acquire(&r.mu).Release()
	return r.counters
}

// Reset zeroes every counter and restarts the uptime clock. The time zone
// from the last sync is kept.
func (r *Registry) Reset() {
	defer guard.Acquire(&r.mu).Release()
	r.counters = Counters{}
	r.start = r.now()
}

// Uptime returns the time since creation or the last Reset.
func (r *Registry) Uptime() time.Duration {
	defer guard.Acquire(&r.mu).Release()
	return r.now().Sub(r.start)
}

// UTCStart returns when counting started, corrected by the last time sync.
func (r *Registry) UTCStart() time.Time {
	defer guard.Acquire(&r.mu).Release()
	return r.start.Add(r.skew).UTC()
}

// UTCTime returns the current time, corrected by the last time sync.
func (r *Registry) UTCTime() time.Time {
	defer guard.Acquire(&r.mu).Release()
	return r.utcNowLocked()
}

// LocalTime returns the current time in the zone from the last sync.
func (r *Registry) LocalTime() time.Time {
	defer guard.Acquire(&r.mu).Release()
	return r.utcNowLocked().In(r.location)
}

// Timezone returns the zone name from the last sync, or "UTC".
func (r *Registry) Timezone() string {
	defer guard.Acquire(&r.mu).Release()
	return r.zone
}

// Synced reports whether a time sync has ever succeeded.
func (r *Registry) Synced() bool {
	defer guard.Acquire(&r.mu).Release()
	return r.synced
}

func (r *Registry) utcNowLocked() time.Time {
	return r.now().Add(r.skew).UTC()
}

// SyncTime asks src for the current time and zone and counts the outcome as
// time_fetch or time_fetch_fail. The registry lock is not held while src
// is queried.
func (r *Registry) SyncTime(ctx context.Context, src TimeSource) error {
	info, err := src.Fetch(ctx)
	if err != nil {
		r.IncTimeFetchFail()
		logging.Warn("Time sync failed", zap.Error(err))
		return err
	}

	defer guard.Acquire(&r.mu).Release()
	r.counters[TimeFetch]++
	r.skew = info.UTC.Sub(r.now())
	r.zone = info.Timezone
	r.location = info.Location()
	r.synced = true

	logging.Info("Time synced",
		zap.String("timezone", info.Timezone),
		zap.Duration("offset", info.Offset()),
		zap.Duration("skew", r.skew),
	)
	return nil
}

// ToJSON renders every counter followed by utc_start, utc_time, local_time,
// timezone and uptime in seconds.
func (r *Registry) ToJSON() string {
	return r.Report().JSON()
}

// Report returns the current counters and clock readings.
func (r *Registry) Report() Report {
	defer guard.Acquire(&r.mu).Release()

	now := r.utcNowLocked()
	return Report{
		Counters:  r.counters,
		UTCStart:  r.start.Add(r.skew).UTC().Format(timeLayout),
		UTCTime:   now.Format(timeLayout),
		LocalTime: now.In(r.location).Format(timeLayout),
		Timezone:  r.zone,
		Uptime:    int64(r.now().Sub(r.start) / time.Second),
	}
}

// RunTimeSync calls SyncTime immediately and then every interval until ctx
// is done. Failures are counted and logged; the loop keeps going.
func (r *Registry) RunTimeSync(ctx context.Context, src TimeSource, interval time.Duration) {
	if src == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = r.SyncTime(ctx, src)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
