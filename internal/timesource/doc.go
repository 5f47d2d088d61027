// Package timesource fetches the current UTC time and the local timezone
// offsets from public time APIs.
//
// Two sources are provided:
//
//   - WorldTimeAPI: worldtimeapi.org, geolocated by the caller's IP
//   - TimeAPI: timeapi.io, by IANA zone name or by IP address
//
// Both share the same HTTP client with per-request timeout and retry with
// exponential backoff. Network failures, 5xx and 429 responses are retried;
// other HTTP statuses and malformed bodies are returned immediately.
//
// Usage:
//
//	src := timesource.NewWorldTimeAPI()
//	info, err := src.Fetch(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(info.UTC.In(info.Location()))
package timesource
