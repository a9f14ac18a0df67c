package connection

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// SocketClient provides Unix socket communication with the agent's
// local management server.
type SocketClient struct {
	path string
	conn net.Conn
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath}
}

// Connect connects to the local socket.
func (c *SocketClient) Connect() error {
	var err error
	c.conn, err = net.DialTimeout("unix", c.path, 5*time.Second)
	return err
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// CommandResult is the response to a local management command.
type CommandResult struct {
	OK      bool            `json:"ok"`
	Command string          `json:"command"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Execute sends a command line and returns the decoded response.
func (c *SocketClient) Execute(cmd string) (*CommandResult, error) {
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", c.path, err)
		}
	}

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, err
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var res CommandResult
	if err := json.NewDecoder(bufio.NewReader(c.conn)).Decode(&res); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &res, nil
}
