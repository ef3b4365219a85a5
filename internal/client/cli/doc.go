// Package cli provides the interactive Pulse command-line client.
//
// It wires configuration, the local store, the API client and the realtime
// components (presence, typing, unread counters, notification gate, push
// token registrar) and runs a line-oriented REPL on top of them.
//
// Commands:
//   - register, login, logout
//   - online, typing <id> on|off
//   - send <id> <text>, read [<id>], unread
//   - open <id>, close, tab on|off
//   - pulse <file>, pulses
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
