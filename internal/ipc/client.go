package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
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

// Run asks the daemon to launch the device server.
func (c *Client) Run(req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.client.Call("Chemdrive.Run", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon to shut down the device server.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Chemdrive.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Chemdrive.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Chemdrive.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectsList returns recent projects, newest first.
func (c *Client) ProjectsList(limit int) (*ProjectsListResponse, error) {
	var resp ProjectsListResponse
	if err := c.client.Call("Chemdrive.ProjectsList", ProjectsListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectsRemove forgets one recent project.
func (c *Client) ProjectsRemove(path string) (*ProjectsRemoveResponse, error) {
	var resp ProjectsRemoveResponse
	if err := c.client.Call("Chemdrive.ProjectsRemove", ProjectsRemoveRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectsClear forgets all recent projects.
func (c *Client) ProjectsClear() (*ProjectsClearResponse, error) {
	var resp ProjectsClearResponse
	if err := c.client.Call("Chemdrive.ProjectsClear", ProjectsClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProjectsPrune drops records for files that no longer exist.
func (c *Client) ProjectsPrune() (*ProjectsPruneResponse, error) {
	var resp ProjectsPruneResponse
	if err := c.client.Call("Chemdrive.ProjectsPrune", ProjectsPruneRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Chemdrive.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Chemdrive.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
