package socketio

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-service/logger"
	"chat-service/repository"
	"chat-service/session"
	"chat-service/utils"

	"github.com/zishang520/socket.io/v2/socket"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrOtpPending   = errors.New("two-factor authentication pending")
	ErrUnknownUser  = errors.New("unknown user")
)

// Authenticator resolves handshake tokens to identities.
type Authenticator struct {
	key     string
	users   repository.UserRepository
	timeout time.Duration
	log     *logger.Logger
}

func NewAuthenticator(key string, users repository.UserRepository, timeout time.Duration, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{key: key, users: users, timeout: timeout, log: log}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*session.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := utils.CheckAndExtractTokenMetadata(token, a.key)
	if err != nil {
		return nil, err
	}
	if claims.Otp {
		return nil, ErrOtpPending
	}

	user, err := a.users.FindByID(ctx, claims.Id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &session.Identity{
		UserID:         user.ID,
		Name:           user.DisplayName(),
		ProfilePicture: user.ProfilePicture,
		Role:           user.Role,
		AdminRole:      user.AdminRole,
	}, nil
}

// Middleware rejects the handshake unless the token query parameter resolves
// to a known user. The identity is stored as the socket's data.
func (a *Authenticator) Middleware() func(*socket.Socket, func(*socket.ExtendedError)) {
	return func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, _ := client.Conn().Request().Query().Get("token")

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		identity, err := a.Authenticate(ctx, token)
		if err != nil {
			a.log.Debug("socket handshake rejected", "socket_id", client.Id(), "error", err)
			next(socket.NewExtendedError("Authentication failed.", nil))
			return
		}

		client.SetData(identity)
		next(nil)
	}
}

// IdentityOf returns the identity stored by Middleware.
func IdentityOf(client *socket.Socket) (*session.Identity, bool) {
	identity, ok := client.Data().(*session.Identity)
	return identity, ok && identity != nil
}
