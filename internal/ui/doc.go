// Package ui renders cointhing CLI output with Lipgloss and Bubble Tea.
//
// Most commands follow a "print once and exit" pattern: a Header naming
// where the data came from, a view (RenderSettings, RenderStats,
// RenderDevices) and, for commands that change something, a Result box.
// Printer ties these together so commands never format output themselves.
//
// The watch command is the one interactive view. WatchModel subscribes to
// settings pushes from the config link and redraws the settings view each
// time the device reports a change:
//
//	client, _ := link.Dial(ctx, addr)
//	cur, _ := client.Settings(ctx)
//	m := ui.NewWatchModel(addr, &cur, client.Updates(), client.Done())
//	err := ui.RunWatch(m)
//
// # Logging Integration
//
// zap logging is silent unless COINTHING_LOG_LEVEL or --log-level is set, so
// the curated UI output is not interleaved with log lines.
package ui
