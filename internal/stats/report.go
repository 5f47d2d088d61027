package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Report is a parsed ToJSON document, as received over the config link.
type Report struct {
	Counters  Counters
	UTCStart  string
	UTCTime   string
	LocalTime string
	Timezone  string
	Uptime    int64 // seconds
}

// ParseReport decodes the output of ToJSON. Unknown keys are ignored and
// missing counters read as zero.
func ParseReport(data []byte) (Report, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{}, fmt.Errorf("invalid stats document: %w", err)
	}

	var r Report
	for i, name := range counterNames {
		v, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &r.Counters[i]); err != nil {
			return Report{}, fmt.Errorf("invalid counter %s: %w", name, err)
		}
	}

	fields := []struct {
		key string
		dst any
	}{
		{"utc_start", &r.UTCStart},
		{"utc_time", &r.UTCTime},
		{"local_time", &r.LocalTime},
		{"timezone", &r.Timezone},
		{"uptime", &r.Uptime},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return Report{}, fmt.Errorf("invalid %s: %w", f.key, err)
		}
	}

	return r, nil
}

// JSON renders the report with the counters first, in Counter order.
func (r Report) JSON() string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, v := range r.Counters {
		writeKey(&b, counterNames[i])
		b.WriteString(strconv.FormatUint(uint64(v), 10))
		b.WriteByte(',')
	}
	writeKey(&b, "utc_start")
	writeString(&b, r.UTCStart)
	b.WriteByte(',')
	writeKey(&b, "utc_time")
	writeString(&b, r.UTCTime)
	b.WriteByte(',')
	writeKey(&b, "local_time")
	writeString(&b, r.LocalTime)
	b.WriteByte(',')
	writeKey(&b, "timezone")
	writeString(&b, r.Timezone)
	b.WriteByte(',')
	writeKey(&b, "uptime")
	b.WriteString(strconv.FormatInt(r.Uptime, 10))
	b.WriteByte('}')
	return b.String()
}

func writeKey(b *bytes.Buffer, k string) {
	writeString(b, k)
	b.WriteByte(':')
}

func writeString(b *bytes.Buffer, s string) {
	q, _ := json.Marshal(s)
	b.Write(q)
}
