package identity

import (
	"fmt"
	"strings"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/repository"
)

// DatabaseDeps 数据库提供方依赖
type DatabaseDeps struct {
	Users       repository.UserRepository
	Assignments repository.AssignmentRepository
}

// New 按 auth.provider 选择身份提供方
func New(cfg config.AuthConfig, issuer *TokenIssuer, store *cache.Store, deps DatabaseDeps) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", constants.IdentityProviderStatic:
		users := cfg.StaticUsers
		if len(users) == 0 {
			users = config.DefaultStaticUsers()
		}
		return NewStaticProvider(users, issuer)
	case constants.IdentityProviderDatabase:
		if deps.Users == nil || deps.Assignments == nil {
			return nil, fmt.Errorf("database identity provider requires user and assignment repositories")
		}
		return NewDatabaseProvider(issuer, deps.Users, deps.Assignments, store), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
