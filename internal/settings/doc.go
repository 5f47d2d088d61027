// Package settings is the persisted settings store of a cointhing device.
//
// A Store owns the canonical user settings (display mode, coins, the two
// quote currencies, chart and number-format preferences, heartbeat) and the
// screen brightness. It mirrors them to two small JSON files on an afero.Fs,
// which on the device is the flash filesystem:
//
//	/settings.json    {"mode":1,"coins":[...],"currencies":[{...},{...}],...}
//	/brightness.json  {"b":255}
//
// # Robustness
//
// Nothing in this package stops the device from booting. A missing file
// means "not configured yet", a corrupt file is logged and ignored, a field
// that is absent or out of range takes its default, and a failed write is
// logged while the in-memory state stays correct. Decode reports which
// fields were defaulted so callers can tell without reading logs.
//
// Files are replaced with a write-to-temp-and-rename, so a power cut during
// a write leaves the previous file intact.
//
// # Concurrency
//
// The Store serializes settings and brightness under one mutex. A Coins
// view has its own mutex and is filled by value copy, so readers of a view
// never contend with file I/O on the Store:
//
//	store := settings.New(fs)
//	var view settings.Coins
//	view.AssignFrom(store)
//	for i := uint32(0); i < view.Count(); i++ {
//	    fmt.Println(view.Symbol(i), view.Currency1Symbol())
//	}
package settings
