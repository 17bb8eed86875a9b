package live

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const sendBuffer = 64

// Upgrader turns HTTP requests into live connections registered with a Hub.
type Upgrader struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewUpgrader returns an Upgrader that only accepts same-origin requests.
func NewUpgrader(hub *Hub) *Upgrader {
	return &Upgrader{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Stream upgrades the request and subscribes the connection to topics.
// The returned context is cancelled once the connection closes; it does not
// derive from the request context, which ends when the handler returns.
func (u *Upgrader) Stream(c echo.Context, topics []string, onMessage func(ClientMessage)) (*Client, context.Context, error) {
	ws, err := u.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil, nil, err
	}
	client, ctx := u.Attach(&gorillaConnAdapter{ws}, topics, onMessage)
	return client, ctx, nil
}

// Attach registers conn with the hub and starts its read and write pumps.
func (u *Upgrader) Attach(conn Conn, topics []string, onMessage func(ClientMessage)) (*Client, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:     uuid.New().String(),
		Topics: append([]string(nil), topics...),
		Send:   make(chan []byte, sendBuffer),
		conn:   conn,
	}
	u.hub.Register(client)

	go u.writePump(client)
	go u.readPump(client, cancel, onMessage)

	return client, ctx
}

func (u *Upgrader) readPump(client *Client, cancel context.CancelFunc, onMessage func(ClientMessage)) {
	defer func() {
		cancel()
		u.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (u *Upgrader) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
