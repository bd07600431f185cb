// Package socketio mounts the socket.io server on fiber and adapts it to the
// session contracts.
package socketio

import (
	"context"

	"chat-service/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

const maxHttpBufferSize = 10 << 20

// Init creates the socket.io server, guards its handshake with auth and mounts
// it under /socket.io/. With rdb set, rooms are shared across nodes through
// the redis adapter.
func Init(ctx context.Context, app *fiber.App, cfg *config.Config, rdb *redis.Client, auth *Authenticator) *socket.Server {
	log.DEBUG = cfg.Debug

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(cfg.SocketPingInterval)
	options.SetPingTimeout(cfg.SocketPingTimeout)
	options.SetMaxHttpBufferSize(maxHttpBufferSize)
	options.SetConnectTimeout(cfg.EventTimeout)
	if rdb != nil {
		options.SetAdapter(&adapter.RedisAdapterBuilder{
			Redis: r_type.NewRedisClient(ctx, rdb),
			Opts:  &adapter.RedisAdapterOptions{},
		})
	}

	server := socket.NewServer(nil, options)
	server.Use(auth.Middleware())

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Conn exposes a socket.io client as a session.Conn.
type Conn struct {
	client *socket.Socket
}

func NewConn(client *socket.Socket) *Conn {
	return &Conn{client: client}
}

func (c *Conn) ID() string {
	return string(c.client.Id())
}

func (c *Conn) Emit(event string, payload any) error {
	return c.client.Emit(event, payload)
}

// Join adds the client to rooms.
func (c *Conn) Join(rooms ...string) {
	for _, room := range rooms {
		c.client.Join(socket.Room(room))
	}
}
