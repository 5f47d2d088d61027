package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Document keys, in the order they are written to the settings file.
const (
	keyMode         = "mode"
	keyCoins        = "coins"
	keyCurrencies   = "currencies"
	keySwapInterval = "swap_interval"
	keyChartPeriod  = "chart_period"
	keyChartStyle   = "chart_style"
	keyNumberFormat = "number_format"
	keyHeartbeat    = "heartbeat"

	keyBrightness = "b"
)

var knownKeys = map[string]bool{
	keyMode:         true,
	keyCoins:        true,
	keyCurrencies:   true,
	keySwapInterval: true,
	keyChartPeriod:  true,
	keyChartStyle:   true,
	keyNumberFormat: true,
	keyHeartbeat:    true,
}

// Report lists what a decode had to substitute or skip. Paths use the
// document layout, e.g. "mode", "coins[1].name", "currencies[2]".
type Report struct {
	Defaulted []string `json:"defaulted,omitempty"` // absent, mistyped or out of range; default used
	Ignored   []string `json:"ignored,omitempty"`   // present but not applied

	// CurrencySlots marks the currency slots the document supplied. The
	// store keeps its current value for every unmarked slot.
	CurrencySlots [2]bool `json:"-"`
}

// Clean reports whether every field was taken as given.
func (r Report) Clean() bool {
	return len(r.Defaulted) == 0 && len(r.Ignored) == 0
}

// WasDefaulted reports whether path was replaced by its default.
func (r Report) WasDefaulted(path string) bool {
	for _, p := range r.Defaulted {
		if p == path {
			return true
		}
	}
	return false
}

// WasIgnored reports whether path was skipped.
func (r Report) WasIgnored(path string) bool {
	for _, p := range r.Ignored {
		if p == path {
			return true
		}
	}
	return false
}

func (r *Report) defaulted(path string) { r.Defaulted = append(r.Defaulted, path) }
func (r *Report) ignored(path string)   { r.Ignored = append(r.Ignored, path) }

// Decode parses settings JSON. Malformed JSON, or a root that is not an
// object, is a parse error. Everything else succeeds: each field falls back
// to its default independently and the Report says which ones did.
func Decode(data []byte) (Snapshot, Report, error) {
	doc, err := parseObject(data)
	if err != nil {
		return Snapshot{}, Report{}, err
	}
	snap, report := DecodeDocument(doc)
	return snap, report, nil
}

// DecodeDocument builds a Snapshot from an already parsed JSON object.
// Numbers may be json.Number, float64 or any Go integer type.
func DecodeDocument(doc map[string]any) (Snapshot, Report) {
	var r Report

	snap := Snapshot{
		Mode:         Mode(uint8Field(doc, keyMode, uint8(DefaultMode), func(v uint8) bool { return Mode(v).Valid() }, &r)),
		NumberFormat: NumberFormat(uint8Field(doc, keyNumberFormat, uint8(DefaultNumberFormat), func(v uint8) bool { return NumberFormat(v).Valid() }, &r)),
		ChartPeriod:  ChartPeriod(uint8Field(doc, keyChartPeriod, uint8(DefaultChartPeriod), func(v uint8) bool { return ChartPeriod(v).Valid() }, &r)),
		SwapInterval: Swap(uint8Field(doc, keySwapInterval, uint8(DefaultSwapInterval), func(v uint8) bool { return Swap(v).Valid() }, &r)),
		ChartStyle:   ChartStyle(uint8Field(doc, keyChartStyle, uint8(DefaultChartStyle), func(v uint8) bool { return ChartStyle(v).Valid() }, &r)),
		Heartbeat:    boolField(doc, keyHeartbeat, true, &r),
		Coins:        decodeCoins(doc[keyCoins], &r),
		Currencies:   decodeCurrencies(doc[keyCurrencies], &r),
	}

	for k := range doc {
		if !knownKeys[k] {
			r.ignored(k)
		}
	}

	return snap, r
}

func decodeCoins(v any, r *Report) []Coin {
	coins := []Coin{}
	arr, ok := v.([]any)
	if !ok {
		r.defaulted(keyCoins)
		return coins
	}
	for i, elem := range arr {
		obj, _ := elem.(map[string]any)
		prefix := fmt.Sprintf("%s[%d].", keyCoins, i)
		coins = append(coins, Coin{
			ID:     stringField(obj, "id", "", prefix, r),
			Symbol: stringField(obj, "symbol", "", prefix, r),
			Name:   stringField(obj, "name", "", prefix, r),
		})
	}
	return coins
}

func decodeCurrencies(v any, r *Report) Currencies {
	var out Currencies
	arr, ok := v.([]any)
	if !ok {
		r.defaulted(keyCurrencies)
		return out
	}
	for i, elem := range arr {
		if i >= len(out) {
			r.ignored(fmt.Sprintf("%s[%d]", keyCurrencies, i))
			continue
		}
		obj, _ := elem.(map[string]any)
		prefix := fmt.Sprintf("%s[%d].", keyCurrencies, i)
		c := Currency{Currency: stringField(obj, "currency", "", prefix, r)}
		c.Symbol = stringField(obj, "symbol", c.Currency, prefix, r)
		out[i] = c
		r.CurrencySlots[i] = true
	}
	return out
}

func parseObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, NewParseError("invalid JSON", err)
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, NewParseError(fmt.Sprintf("expected a JSON object, got %s", jsonKind(root)), nil)
	}
	return doc, nil
}

// uint8Field reads doc[key] as an integer in [0,255] accepted by valid.
func uint8Field(doc map[string]any, key string, def uint8, valid func(uint8) bool, r *Report) uint8 {
	v, ok := toUint8(doc[key])
	if !ok || !valid(v) {
		r.defaulted(key)
		return def
	}
	return v
}

func boolField(doc map[string]any, key string, def bool, r *Report) bool {
	v, ok := doc[key].(bool)
	if !ok {
		r.defaulted(key)
		return def
	}
	return v
}

func stringField(obj map[string]any, key, def, prefix string, r *Report) string {
	v, ok := obj[key].(string)
	if !ok {
		r.defaulted(prefix + key)
		return def
	}
	return v
}

func toUint8(v any) (uint8, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 || i > math.MaxUint8 {
			return 0, false
		}
		return uint8(i), true
	case float64:
		if n != math.Trunc(n) || n < 0 || n > math.MaxUint8 {
			return 0, false
		}
		return uint8(n), true
	case float32:
		return toUint8(float64(n))
	case int:
		return intToUint8(int64(n))
	case int8:
		return intToUint8(int64(n))
	case int16:
		return intToUint8(int64(n))
	case int32:
		return intToUint8(int64(n))
	case int64:
		return intToUint8(n)
	case uint:
		return uintToUint8(uint64(n))
	case uint8:
		return n, true
	case uint16:
		return uintToUint8(uint64(n))
	case uint32:
		return uintToUint8(uint64(n))
	case uint64:
		return uintToUint8(n)
	default:
		return 0, false
	}
}

func intToUint8(i int64) (uint8, bool) {
	if i < 0 || i > math.MaxUint8 {
		return 0, false
	}
	return uint8(i), true
}

func uintToUint8(u uint64) (uint8, bool) {
	if u > math.MaxUint8 {
		return 0, false
	}
	return uint8(u), true
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// decodeBrightness parses {"b":N}. Anything unusable yields MaxBrightness.
func decodeBrightness(data []byte) (uint8, bool) {
	doc, err := parseObject(data)
	if err != nil {
		return MaxBrightness, false
	}
	b, ok := toUint8(doc[keyBrightness])
	if !ok || !ValidBrightness(b) {
		return MaxBrightness, false
	}
	return b, true
}
