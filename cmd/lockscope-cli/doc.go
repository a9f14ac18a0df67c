// Package main provides the entry point for lockscope-cli.
//
// The CLI talks to a running lockscope-agent:
//
//   - status, locks, records, reset use the HTTP admin API
//   - the local group uses the agent's Unix management socket
//   - config manages saved agent connections in ~/.lockscope/cli.yaml
//
// Usage:
//
//	lockscope-cli [global flags] <command> [command flags]
//	lockscope-cli --agent 127.0.0.1:5090 locks --top 10
//	lockscope-cli local min-duration 25ms
package main
