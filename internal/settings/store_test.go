package settings

import (
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

const sampleJSON = `{"mode":2,"coins":[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},{"id":"ethereum","symbol":"eth","name":"Ethereum"}],` +
	`"currencies":[{"currency":"eur","symbol":"€"},{"currency":"usd","symbol":"$"}],` +
	`"swap_interval":1,"chart_period":3,"chart_style":2,"number_format":1,"heartbeat":false}`

func readFile(t *testing.T, fs afero.Fs, name string) (string, bool) {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func TestNewWithoutFilesUsesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	if s.Exists() {
		t.Error("Exists() should be false on an empty filesystem")
	}
	if !s.Snapshot().Equal(Defaults()) {
		t.Errorf("Snapshot() = %+v, want defaults", s.Snapshot())
	}
	if got := s.Brightness(); got != MaxBrightness {
		t.Errorf("Brightness() = %d, want %d", got, MaxBrightness)
	}
	if _, ok := readFile(t, fs, DefaultSettingsFile); ok {
		t.Error("loading defaults should not write a settings file")
	}
}

func TestApplyJSONPersistsAndRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	report, err := s.ApplyJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}
	if !report.Clean() {
		t.Errorf("report = %+v, want clean", report)
	}
	if !s.Exists() {
		t.Fatal("Exists() should be true after ApplyJSON")
	}

	snap := s.Snapshot()
	if snap.Mode != ModeTwoCoins || len(snap.Coins) != 2 || snap.Heartbeat {
		t.Errorf("Snapshot() = %+v, not the applied settings", snap)
	}

	got, _ := readFile(t, fs, DefaultSettingsFile)
	if got != string(Encode(snap)) {
		t.Errorf("settings file = %s, want %s", got, Encode(snap))
	}
	if _, ok := readFile(t, fs, DefaultSettingsFile+".tmp"); ok {
		t.Error("temporary file should not survive a successful write")
	}

	reloaded := New(fs)
	if !reloaded.Snapshot().Equal(snap) {
		t.Errorf("reloaded = %+v, want %+v", reloaded.Snapshot(), snap)
	}
}

func TestApplyJSONEmptyObjectResetsToDefaults(t *testing.T) {
	s := New(afero.NewMemMapFs())
	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}

	if _, err := s.ApplyJSON([]byte(`{}`)); err != nil {
		t.Fatalf("ApplyJSON({}) error = %v", err)
	}
	want := Defaults()
	want.Currencies = Currencies{{Currency: "eur", Symbol: "€"}, {Currency: "usd", Symbol: "$"}}
	if !s.Snapshot().Equal(want) {
		t.Errorf("Snapshot() = %+v, want defaults with the previous currencies", s.Snapshot())
	}
}

func TestApplyJSONEmptyObjectOnFreshStore(t *testing.T) {
	s := New(afero.NewMemMapFs())
	if _, err := s.ApplyJSON([]byte(`{}`)); err != nil {
		t.Fatalf("ApplyJSON({}) error = %v", err)
	}
	if got := s.Snapshot().Currencies; got != (Currencies{}) {
		t.Errorf("Currencies = %+v, want two empty slots", got)
	}
}

func TestApplyJSONKeepsUnsuppliedCurrencySlots(t *testing.T) {
	eur := Currency{Currency: "eur", Symbol: "€"}
	chf := Currency{Currency: "chf", Symbol: "F"}
	usd := Currency{Currency: "usd", Symbol: "$"}

	tests := []struct {
		name string
		doc  string
		want Currencies
	}{
		{"both slots", `{"currencies":[{"currency":"usd","symbol":"$"},{"currency":"eur","symbol":"€"}]}`, Currencies{usd, eur}},
		{"first slot only", `{"currencies":[{"currency":"usd","symbol":"$"}]}`, Currencies{usd, chf}},
		{"empty array", `{"currencies":[]}`, Currencies{eur, chf}},
		{"key absent", `{"mode":2}`, Currencies{eur, chf}},
		{"not an array", `{"currencies":"usd"}`, Currencies{eur, chf}},
		{"slot given as non-object", `{"currencies":[7]}`, Currencies{{}, chf}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s := New(fs)
			if _, err := s.ApplyJSON([]byte(`{"currencies":[{"currency":"eur","symbol":"€"},{"currency":"chf","symbol":"F"}]}`)); err != nil {
				t.Fatalf("ApplyJSON() error = %v", err)
			}

			if _, err := s.ApplyJSON([]byte(tt.doc)); err != nil {
				t.Fatalf("ApplyJSON(%s) error = %v", tt.doc, err)
			}
			if got := s.Snapshot().Currencies; got != tt.want {
				t.Errorf("Currencies = %+v, want %+v", got, tt.want)
			}
			if got := New(fs).Snapshot().Currencies; got != tt.want {
				t.Errorf("persisted Currencies = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyDocumentKeepsUnsuppliedCurrencySlots(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.Apply(sampleSnapshot(), false)
	before := s.Snapshot().Currencies

	s.ApplyDocument(map[string]any{
		"currencies": []any{map[string]any{"currency": "gbp"}},
	}, false)

	want := Currencies{{Currency: "gbp", Symbol: "gbp"}, before[1]}
	if got := s.Snapshot().Currencies; got != want {
		t.Errorf("Currencies = %+v, want %+v", got, want)
	}
}

func TestApplyReplacesBothCurrencySlots(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.Apply(sampleSnapshot(), false)

	s.Apply(Defaults(), false)
	if got := s.Snapshot().Currencies; got != (Currencies{}) {
		t.Errorf("Apply() kept currencies %+v, want a full replacement", got)
	}
}

func TestLoadKeepsUnsuppliedCurrencySlots(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)
	s.Apply(sampleSnapshot(), false)
	before := s.Snapshot().Currencies

	if err := afero.WriteFile(fs, DefaultSettingsFile, []byte(`{"mode":3}`), 0644); err != nil {
		t.Fatal(err)
	}
	s.Load()

	if s.Mode() != ModeMultipleCoins {
		t.Errorf("Mode() = %v, want multiple coins", s.Mode())
	}
	if got := s.Snapshot().Currencies; got != before {
		t.Errorf("Currencies = %+v, want %+v", got, before)
	}
}

func TestApplyJSONReplacesCoinList(t *testing.T) {
	s := New(afero.NewMemMapFs())
	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}

	if _, err := s.ApplyJSON([]byte(`{"coins":[]}`)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}
	if n := len(s.Snapshot().Coins); n != 0 {
		t.Errorf("len(Coins) = %d, want 0", n)
	}
}

func TestApplyJSONParseErrorLeavesStateAndFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)
	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}
	before := s.Snapshot()
	fileBefore, _ := readFile(t, fs, DefaultSettingsFile)

	calls := 0
	s.onChange = append(s.onChange, func(Snapshot) { calls++ })

	for _, bad := range []string{`{"mode":`, `[]`, ``} {
		_, err := s.ApplyJSON([]byte(bad))
		if !IsParseError(err) {
			t.Errorf("ApplyJSON(%q) error = %v, want parse error", bad, err)
		}
	}

	if !s.Snapshot().Equal(before) {
		t.Errorf("state changed after parse error: %+v", s.Snapshot())
	}
	if got, _ := readFile(t, fs, DefaultSettingsFile); got != fileBefore {
		t.Errorf("settings file changed after parse error: %s", got)
	}
	if calls != 0 {
		t.Errorf("onChange called %d times on parse errors", calls)
	}
}

func TestApplyWithoutPersist(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)

	snap := sampleSnapshot()
	s.Apply(snap, false)

	if !s.Snapshot().Equal(snap) {
		t.Errorf("Snapshot() = %+v, want %+v", s.Snapshot(), snap)
	}
	if s.Exists() {
		t.Error("Apply(persist=false) should not write the settings file")
	}

	s.Persist()
	if !s.Exists() {
		t.Error("Persist() should write the settings file")
	}
}

func TestApplySanitizesEnums(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.Apply(Snapshot{Mode: 9, NumberFormat: 77, ChartPeriod: 0, SwapInterval: 4, ChartStyle: 3}, false)

	snap := s.Snapshot()
	if snap.Mode != DefaultMode || snap.NumberFormat != DefaultNumberFormat ||
		snap.ChartPeriod != DefaultChartPeriod || snap.SwapInterval != DefaultSwapInterval ||
		snap.ChartStyle != DefaultChartStyle {
		t.Errorf("Snapshot() = %+v, enums not sanitized", snap)
	}
	if snap.Coins == nil {
		t.Error("Coins should never be nil")
	}
}

func TestApplyDocument(t *testing.T) {
	s := New(afero.NewMemMapFs())
	report := s.ApplyDocument(map[string]any{"mode": float64(3), "extra": true}, true)

	if s.Mode() != ModeMultipleCoins {
		t.Errorf("Mode() = %v, want multiple coins", s.Mode())
	}
	if !report.WasIgnored("extra") {
		t.Errorf("report should list extra as ignored, got %v", report.Ignored)
	}
	if !s.Exists() {
		t.Error("ApplyDocument(persist=true) should write the settings file")
	}
}

func TestApplyDocumentAcceptsGoIntegers(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.ApplyDocument(map[string]any{
		"mode":          2,
		"number_format": uint8(1),
		"chart_period":  int64(5),
		"swap_interval": uint32(3),
		"chart_style":   int8(2),
	}, false)

	snap := s.Snapshot()
	if snap.Mode != ModeTwoCoins {
		t.Errorf("Mode = %v, want two coins", snap.Mode)
	}
	if snap.NumberFormat != 1 || snap.ChartPeriod != 5 || snap.SwapInterval != 3 || snap.ChartStyle != 2 {
		t.Errorf("Snapshot() = %+v, integer fields not applied", snap)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New(afero.NewMemMapFs())
	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}

	snap := s.Snapshot()
	snap.Coins[0].ID = "mutated"

	if got := s.Snapshot().Coins[0].ID; got != "bitcoin" {
		t.Errorf("store coin changed through a snapshot: %q", got)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, DefaultSettingsFile, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(fs)
	first := s.Snapshot()
	s.Load()
	s.Load()

	if !s.Snapshot().Equal(first) {
		t.Errorf("Load() not idempotent: %+v vs %+v", s.Snapshot(), first)
	}
	if got, _ := readFile(t, fs, DefaultSettingsFile); got != sampleJSON {
		t.Error("Load() should not rewrite the settings file")
	}
}

func TestLoadCorruptFileKeepsCurrentState(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, DefaultSettingsFile, []byte("\x00\xffgarbage"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(fs)
	if !s.Snapshot().Equal(Defaults()) {
		t.Errorf("Snapshot() = %+v, want defaults", s.Snapshot())
	}

	s.Apply(sampleSnapshot(), false)
	s.Load()
	if !s.Snapshot().Equal(sampleSnapshot()) {
		t.Errorf("Load() of a corrupt file replaced state: %+v", s.Snapshot())
	}
}

func TestLoadPartialFileDefaultsMissingFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, DefaultSettingsFile, []byte(`{"mode":3,"number_format":99}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(fs)
	if s.Mode() != ModeMultipleCoins {
		t.Errorf("Mode() = %v, want multiple coins", s.Mode())
	}
	if s.NumberFormat() != DefaultNumberFormat {
		t.Errorf("NumberFormat() = %v, want default", s.NumberFormat())
	}
	if !s.Heartbeat() {
		t.Error("Heartbeat() should default to true")
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := New(fs)

	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v, write failures should not surface", err)
	}
	if s.Mode() != ModeTwoCoins {
		t.Errorf("Mode() = %v, in-memory state should be updated", s.Mode())
	}
	if s.Exists() {
		t.Error("Exists() should be false when the write failed")
	}

	if !s.SetBrightness(100) {
		t.Error("SetBrightness(100) should be accepted even when the write fails")
	}
	if s.Brightness() != 100 {
		t.Errorf("Brightness() = %d, want 100", s.Brightness())
	}
}

func TestEraseAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)
	if _, err := s.ApplyJSON([]byte(sampleJSON)); err != nil {
		t.Fatalf("ApplyJSON() error = %v", err)
	}
	s.SetBrightness(50)

	s.EraseAll()

	if s.Exists() {
		t.Error("Exists() should be false after EraseAll")
	}
	if _, ok := readFile(t, fs, DefaultBrightnessFile); ok {
		t.Error("brightness file should be removed")
	}
	if s.Mode() != ModeTwoCoins || s.Brightness() != 50 {
		t.Error("EraseAll should leave in-memory state untouched")
	}

	// Erasing twice is not an error.
	s.EraseAll()

	fresh := New(fs)
	if !fresh.Snapshot().Equal(Defaults()) || fresh.Brightness() != MaxBrightness {
		t.Error("a store created after EraseAll should start from defaults")
	}
}

func TestCustomFileNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, WithSettingsFile("/cfg/s.json"), WithBrightnessFile("/cfg/b.json"))

	settingsFile, brightnessFile := s.Paths()
	if settingsFile != "/cfg/s.json" || brightnessFile != "/cfg/b.json" {
		t.Errorf("Paths() = %q, %q", settingsFile, brightnessFile)
	}

	s.Apply(sampleSnapshot(), true)
	s.SetBrightness(42)

	if _, ok := readFile(t, fs, "/cfg/s.json"); !ok {
		t.Error("settings not written to custom file")
	}
	if got, _ := readFile(t, fs, "/cfg/b.json"); got != `{"b":42}` {
		t.Errorf("brightness file = %q", got)
	}
}

func TestOnChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, DefaultSettingsFile, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}

	var got []Snapshot
	s := New(fs, WithOnChange(func(snap Snapshot) {
		got = append(got, snap)
	}))

	if len(got) != 0 {
		t.Fatalf("onChange fired %d times during load", len(got))
	}

	if _, err := s.ApplyJSON([]byte(`{"mode":3}`)); err != nil {
		t.Fatal(err)
	}
	s.Apply(sampleSnapshot(), false)

	if len(got) != 2 {
		t.Fatalf("onChange fired %d times, want 2", len(got))
	}
	if got[0].Mode != ModeMultipleCoins {
		t.Errorf("first change Mode = %v", got[0].Mode)
	}

	// The callback's copy is independent of the store.
	got[1].Coins[0].ID = "mutated"
	if s.Snapshot().Coins[0].ID != "bitcoin" {
		t.Error("onChange snapshot shares memory with the store")
	}
}

func TestOnChangeMayCallStore(t *testing.T) {
	var s *Store
	var mode Mode
	s = New(afero.NewMemMapFs(), WithOnChange(func(Snapshot) {
		mode = s.Mode()
	}))

	s.Apply(sampleSnapshot(), false)
	if mode != sampleSnapshot().Mode {
		t.Errorf("mode read from callback = %v", mode)
	}
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name     string
		value    uint8
		accepted bool
		want     uint8
		file     string
	}{
		{"below minimum rejected", 5, false, 255, ""},
		{"just below minimum rejected", 9, false, 255, ""},
		{"minimum", 10, true, 10, `{"b":10}`},
		{"mid range", 200, true, 200, `{"b":200}`},
		{"maximum", 255, true, 255, `{"b":255}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s := New(fs)

			if got := s.SetBrightness(tt.value); got != tt.accepted {
				t.Errorf("SetBrightness(%d) = %v, want %v", tt.value, got, tt.accepted)
			}
			if got := s.Brightness(); got != tt.want {
				t.Errorf("Brightness() = %d, want %d", got, tt.want)
			}

			file, ok := readFile(t, fs, DefaultBrightnessFile)
			if tt.file == "" {
				if ok {
					t.Errorf("rejected value wrote %q", file)
				}
				return
			}
			if file != tt.file {
				t.Errorf("brightness file = %q, want %q", file, tt.file)
			}
			if New(fs).Brightness() != tt.want {
				t.Error("brightness did not survive a reload")
			}
		})
	}
}

func TestRejectedBrightnessKeepsPrevious(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.SetBrightness(120)
	s.SetBrightness(3)

	if got := s.Brightness(); got != 120 {
		t.Errorf("Brightness() = %d, want 120", got)
	}
}

func TestLoadBrightnessFallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want uint8
	}{
		{"valid", `{"b":120}`, 120},
		{"too dim", `{"b":5}`, MaxBrightness},
		{"wrong key", `{"brightness":120}`, MaxBrightness},
		{"corrupt", `{{{`, MaxBrightness},
		{"empty", ``, MaxBrightness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, DefaultBrightnessFile, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if got := New(fs).Brightness(); got != tt.want {
				t.Errorf("Brightness() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConcurrentApplyAndRead(t *testing.T) {
	s := New(afero.NewMemMapFs())

	a := sampleSnapshot()
	b := Defaults()
	b.Mode = ModeMultipleCoins
	b.Coins = []Coin{{ID: "x", Symbol: "X", Name: "Ex"}, {ID: "y", Symbol: "Y", Name: "Why"}, {ID: "z", Symbol: "Z", Name: "Zed"}}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if (i+w)%2 == 0 {
					s.Apply(a, true)
				} else {
					s.Apply(b, true)
				}
				s.SetBrightness(uint8(10 + i))
			}
		}(w)
	}

	errs := make(chan error, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := s.Snapshot()
				if !snap.Equal(a) && !snap.Equal(b) && !snap.Equal(Defaults()) {
					errs <- fmt.Errorf("torn snapshot: %+v", snap)
					return
				}
				_ = s.Brightness()
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	final := New(s.fs)
	if !final.Snapshot().Equal(a) && !final.Snapshot().Equal(b) {
		t.Errorf("settings file holds neither writer's state: %+v", final.Snapshot())
	}
}
