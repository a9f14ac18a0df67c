// Package connection provides connection management for lockscope-cli.
//
// HTTPClient talks to an agent's HTTP admin API. SocketClient talks to
// the local management socket for operations that should not go over
// the network, such as shutdown.
package connection
