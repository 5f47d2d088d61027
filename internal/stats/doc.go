// Package stats keeps the device's operational counters: price and chart
// fetches, time syncs, settings changes, link requests, station connects
// and the brownout and crash counts.
//
// A Registry has its own mutex, independent of the settings store, so the
// fetch and render loops can count events without contending with file I/O.
// Counters are uint32 and only ever increase until Reset.
//
// ToJSON renders the counters together with timing fields:
//
//	{"price_fetch":12,...,"crash":0,
//	 "utc_start":"2024-07-01 12:30:00","utc_time":"2024-07-01 14:00:00",
//	 "local_time":"2024-07-01 16:00:00","timezone":"Europe/Zurich","uptime":5400}
//
// local_time and timezone come from the last successful SyncTime; until then
// the local time equals UTC and timezone is "UTC".
package stats
