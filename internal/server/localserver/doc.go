// Package localserver provides the local management server.
//
// It listens on a Unix Domain Socket (UDS), giving local operators
// management access to the agent without going through the HTTP admin
// surface. The protocol is line oriented: one command per line, a JSON
// document per response. Supported commands are status, reset, reload,
// min-duration and shutdown.
package localserver
