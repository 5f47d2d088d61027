package stats

import "fmt"

// Counter identifies one of the registry's counters.
type Counter int

const (
	PriceFetch Counter = iota
	PriceFetchFail
	ChartFetch
	ChartFetchFail
	TimeFetch
	TimeFetchFail
	SettingsChange
	ServerRequest
	StationConnected
	StationDisconnected
	Brownout
	Crash

	NumCounters
)

var counterNames = [NumCounters]string{
	PriceFetch:          "price_fetch",
	PriceFetchFail:      "price_fetch_fail",
	ChartFetch:          "chart_fetch",
	ChartFetchFail:      "chart_fetch_fail",
	TimeFetch:           "time_fetch",
	TimeFetchFail:       "time_fetch_fail",
	SettingsChange:      "settings_change",
	ServerRequest:       "server_requests",
	StationConnected:    "station_connected",
	StationDisconnected: "station_disconnected",
	Brownout:            "brownout",
	Crash:               "crash",
}

// Valid reports whether c names a counter.
func (c Counter) Valid() bool {
	return c >= 0 && c < NumCounters
}

// String returns the counter's JSON key.
func (c Counter) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Counter(%d)", int(c))
	}
	return counterNames[c]
}

// ParseCounter returns the counter with the given JSON key.
func ParseCounter(name string) (Counter, bool) {
	for i, n := range counterNames {
		if n == name {
			return Counter(i), true
		}
	}
	return 0, false
}

// Counters is a value copy of every counter, indexed by Counter.
type Counters [NumCounters]uint32

// Get returns the value of c, or 0 for an unknown counter.
func (cs Counters) Get(c Counter) uint32 {
	if !c.Valid() {
		return 0
	}
	return cs[c]
}

// Map returns the counters keyed by name.
func (cs Counters) Map() map[string]uint32 {
	m := make(map[string]uint32, NumCounters)
	for i, v := range cs {
		m[counterNames[i]] = v
	}
	return m
}
