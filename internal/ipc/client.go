package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// DefaultCallTimeout bounds a single RPC. Registration calls wait on the
// backend, so it is longer than the backend request timeout.
const DefaultCallTimeout = 30 * time.Second

// Client provides RPC access to a running console.
type Client struct {
	conn    net.Conn
	client  *rpc.Client
	timeout time.Duration
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient, timeout: DefaultCallTimeout}, nil
}

// SetTimeout overrides the per-call timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	call := c.client.Go(serviceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case done := <-call.Done:
		return done.Error
	case <-time.After(c.timeout):
		return fmt.Errorf("%s: timed out after %s", method, c.timeout)
	}
}

// Status retrieves the console status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Roster lists roster rows matching query.
func (c *Client) Roster(query string) (*RosterResponse, error) {
	var resp RosterResponse
	if err := c.call("Roster", RosterRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mark toggles a member's presence.
func (c *Client) Mark(req MarkRequest) (*MarkResponse, error) {
	var resp MarkResponse
	if err := c.call("Mark", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan submits a typed credential code.
func (c *Client) Scan(code string) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.call("Scan", ScanRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh re-fetches the roster.
func (c *Client) Refresh() (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.call("Refresh", RefreshRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Notices retrieves up to limit recent notices.
func (c *Client) Notices(limit int) (*NoticesResponse, error) {
	var resp NoticesResponse
	if err := c.call("Notices", NoticesRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the console to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
