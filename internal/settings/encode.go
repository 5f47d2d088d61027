package settings

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Encode writes s in the settings file layout: compact, fixed key order.
func Encode(s Snapshot) []byte {
	var b bytes.Buffer
	b.Grow(128 + 64*len(s.Coins))

	b.WriteString(`{"mode":`)
	writeUint(&b, uint8(s.Mode))

	b.WriteString(`,"coins":[`)
	for i, c := range s.Coins {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"id":`)
		writeString(&b, c.ID)
		b.WriteString(`,"symbol":`)
		writeString(&b, c.Symbol)
		b.WriteString(`,"name":`)
		writeString(&b, c.Name)
		b.WriteByte('}')
	}

	b.WriteString(`],"currencies":[`)
	for i, c := range s.Currencies {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"currency":`)
		writeString(&b, c.Currency)
		b.WriteString(`,"symbol":`)
		writeString(&b, c.Symbol)
		b.WriteByte('}')
	}

	b.WriteString(`],"swap_interval":`)
	writeUint(&b, uint8(s.SwapInterval))
	b.WriteString(`,"chart_period":`)
	writeUint(&b, uint8(s.ChartPeriod))
	b.WriteString(`,"chart_style":`)
	writeUint(&b, uint8(s.ChartStyle))
	b.WriteString(`,"number_format":`)
	writeUint(&b, uint8(s.NumberFormat))
	b.WriteString(`,"heartbeat":`)
	b.WriteString(strconv.FormatBool(s.Heartbeat))
	b.WriteByte('}')

	return b.Bytes()
}

// EncodeBrightness writes the brightness file body, {"b":N}.
func EncodeBrightness(v uint8) []byte {
	return []byte(`{"b":` + strconv.Itoa(int(v)) + `}`)
}

func writeUint(b *bytes.Buffer, v uint8) {
	b.WriteString(strconv.Itoa(int(v)))
}

func writeString(b *bytes.Buffer, s string) {
	// Marshal of a string cannot fail.
	q, _ := json.Marshal(s)
	b.Write(q)
}
