// Package link is the config link: a WebSocket endpoint through which a
// companion CLI or app reads and changes a device's settings.
//
// Every text frame holds one JSON envelope:
//
//	{"type":"settings","id":1,"data":{"mode":2,"coins":[...]}}   apply settings
//	{"type":"brightness","id":2,"value":120}                      set brightness
//	{"type":"get","id":3}                                         read settings
//	{"type":"stats","id":4}                                       read counters
//	{"type":"reset_stats","id":5}                                 zero counters
//
// Replies echo the request id and are "ack" (with a decode report for
// settings), "settings", "stats" or "error". After any change the device
// pushes {"type":"settings","data":...,"brightness":N} with no id to every
// connected peer.
//
// The server counts every request as server_requests and every accepted
// settings document as settings_change.
package link
