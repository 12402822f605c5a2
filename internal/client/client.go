// Package client is a websocket client for the ledger server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"okinoko-higher_lower/internal/host"
	"okinoko-higher_lower/internal/server"
	"okinoko-higher_lower/sdk"
)

// Client sends one request at a time over a single connection.
type Client struct {
	conn *websocket.Conn

	mu   sync.Mutex
	next uint64
}

// Dial connects to url (ws:// or wss://) as principal.
func Dial(ctx context.Context, url string, principal sdk.Address) (*Client, error) {
	h := http.Header{}
	h.Set(server.PrincipalHeader, principal.String())
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Call sends a request and waits for its response. A rejected call returns
// the response together with its *host.CallError.
func (c *Client) Call(ctx context.Context, method, payload string, intents []sdk.Intent) (*server.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	req := server.Request{
		ID:      strconv.FormatUint(c.next, 10),
		Method:  method,
		Payload: payload,
		Intents: intents,
	}
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	var resp server.Response
	if err := wsjson.Read(ctx, c.conn, &resp); err != nil {
		return nil, fmt.Errorf("read %s: %w", method, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if !resp.OK {
		if resp.Error == nil {
			resp.Error = &host.CallError{Kind: "Internal", Message: "call failed without error"}
		}
		return &resp, resp.Error
	}
	return &resp, nil
}

// Stake builds the transfer.allow intent that attaches a stake to s_open.
func Stake(amount sdk.Amount, asset sdk.Asset) []sdk.Intent {
	return []sdk.Intent{{
		Type: "transfer.allow",
		Args: map[string]string{"limit": amount.String(), "token": asset.String()},
	}}
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
