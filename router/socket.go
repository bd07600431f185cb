package router

import (
	"context"
	"encoding/json"
	"strings"

	"chat-service/socketio"

	"github.com/zishang520/socket.io/v2/socket"
)

// Socket binds the client events of every authenticated connection to d.
func Socket(server *socket.Server, d *Dispatcher) {
	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		who, ok := socketio.IdentityOf(client)
		if !ok {
			client.Disconnect(true)
			return
		}
		identity := *who
		conn := socketio.NewConn(client)

		conn.Join(d.Rooms(identity)...)
		d.Connect(context.Background(), conn, identity)

		for _, event := range ClientEvents {
			client.On(event, func(args ...interface{}) {
				d.Handle(context.Background(), conn, identity, event, payloadOf(args))
			})
		}

		client.On("disconnect", func(...interface{}) {
			d.Disconnect(context.Background(), conn, identity)
		})
	})
}

// payloadOf re-encodes the first event argument. Clients may also send the
// object as a JSON string.
func payloadOf(args []interface{}) json.RawMessage {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	switch v := args[0].(type) {
	case string:
		if s := strings.TrimSpace(v); strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
	case []byte:
		if json.Valid(v) {
			return v
		}
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return nil
	}
	return raw
}
