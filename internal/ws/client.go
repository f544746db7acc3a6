package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Client pumps one subscription out over a websocket connection until the
// context ends or the peer goes away.
type Client struct {
	conn *websocket.Conn
	sub  *Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient wires a subscription to a websocket and starts the write and
// keepalive loops. Close releases the subscription and the socket.
func NewClient(conn *websocket.Conn, sub *Subscription) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{conn: conn, sub: sub, ctx: ctx, cancel: cancel}

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

func (c *Client) Close() {
	c.cancel()
	c.sub.Cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Wait blocks until the connection is torn down from either side. Reading
// is how nhooyr surfaces a peer disconnect, so we read and discard.
func (c *Client) Wait() {
	for {
		if _, _, err := c.conn.Read(c.ctx); err != nil {
			c.cancel()
			return
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.sub.C:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}
