// Package config defines the CLI configuration structure.
//
// The config file lives at ~/.lockscope/cli.yaml and stores output
// preferences plus named agent connections, so repeat invocations do
// not need --agent flags.
package config
