// Package command provides CLI command definitions for lockscope-cli.
//
// It uses urfave/cli/v2 for command parsing. Commands talk to a
// running agent over its HTTP admin API, except the local group which
// uses the Unix management socket.
package command
