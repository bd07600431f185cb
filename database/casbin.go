package database

import (
	"fmt"

	"chat-service/model"
	"chat-service/session"

	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

type policy struct {
	sub, obj, act string
}

var defaultPolicies = []policy{
	{model.AdminRolePrimary, "/v1/admin*", "(GET)|(POST)|(PUT)|(DELETE)"},
	{model.AdminRolePrimary, "room:" + session.AdminRoom, "join"},
	{model.AdminRoleSub, "room:" + session.SubAdminRoomPrefix + "*", "join"},
}

// Casbin builds the enforcer on the gorm adapter and seeds default policies.
func Casbin(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	// Initialize casbin adapter
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}

	// Load model configuration file and policy store adapter
	e, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	if err := seed(e); err != nil {
		return nil, err
	}
	return e, e.LoadPolicy()
}

func seed(e *casbin.Enforcer) error {
	for _, p := range defaultPolicies {
		has, err := e.HasPolicy(p.sub, p.obj, p.act)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(p.sub, p.obj, p.act); err != nil {
			return fmt.Errorf("casbin add policy: %w", err)
		}
	}
	return nil
}
