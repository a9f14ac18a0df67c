// Package output provides output formatting for lockscope-cli.
//
// Three formats are supported: table (default, tabwriter based), json
// and yaml. Table rendering converts slices of structs and single
// structs using their json tags for column names; durations and
// nanosecond timestamps get human readable formatting.
package output
