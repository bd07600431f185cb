package socketio

import (
	"context"
	"testing"
	"time"

	"chat-service/database"
	"chat-service/model"
	"chat-service/repository"
	"chat-service/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "socket-test-key"

func newAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	db, err := database.OpenSQLite("file:socketio_" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.Create(&model.User{
		ID:             "u1",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		ProfilePicture: "https://cdn.example.com/ada.png",
		Role:           model.RoleAdmin,
		AdminRole:      model.AdminRoleSub,
	}).Error)
	return NewAuthenticator(key, repository.NewUserRepo(db), time.Second, nil)
}

func sign(t *testing.T, id string, otp bool) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, otp, key, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthenticateResolvesIdentity(t *testing.T) {
	auth := newAuthenticator(t)

	identity, err := auth.Authenticate(context.Background(), sign(t, "u1", false))
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, model.RoleAdmin, identity.Role)
	assert.Equal(t, model.AdminRoleSub, identity.AdminRole)

	identity, err = auth.Authenticate(context.Background(), "Bearer "+sign(t, "u1", false))
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
}

func TestAuthenticateRejects(t *testing.T) {
	auth := newAuthenticator(t)

	_, err := auth.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = auth.Authenticate(context.Background(), sign(t, "u1", true))
	assert.ErrorIs(t, err, ErrOtpPending)

	_, err = auth.Authenticate(context.Background(), sign(t, "ghost", false))
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = auth.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}
