package authz

import (
	"strings"

	"github.com/bluboy-rewards/internal/constants"
)

const (
	screenObjectPrefix = "/view"
	ActionView         = "VIEW"
)

// Screen 后台界面
type Screen struct {
	Path     string   `json:"path"`
	Label    string   `json:"label"`
	LabelKey string   `json:"label_key"`
	Roles    []string `json:"-"`
}

var allRoles = []string{constants.RoleSuperAdmin, constants.RoleTenantMarketingAdmin, constants.RoleMerchantAdmin}

// Screens 侧边栏界面，顺序即展示顺序
func Screens() []Screen {
	return []Screen{
		{Path: "/dashboard", Label: "Dashboard", LabelKey: "nav.dashboard", Roles: allRoles},
		{Path: "/tenants", Label: "Tenants", LabelKey: "nav.tenants", Roles: []string{constants.RoleSuperAdmin}},
		{Path: "/merchants", Label: "Merchants", LabelKey: "nav.merchants", Roles: []string{constants.RoleSuperAdmin}},
		{Path: "/events", Label: "Events", LabelKey: "nav.events", Roles: []string{constants.RoleSuperAdmin, constants.RoleTenantMarketingAdmin}},
		{Path: "/rewards", Label: "Rewards", LabelKey: "nav.rewards", Roles: []string{constants.RoleMerchantAdmin}},
		{Path: "/rewards/claim", Label: "Claim Reward", LabelKey: "nav.claim", Roles: []string{constants.RoleMerchantAdmin}},
		{Path: "/users", Label: "Users", LabelKey: "nav.users", Roles: []string{constants.RoleSuperAdmin}},
		{Path: "/analytics", Label: "Analytics", LabelKey: "nav.analytics", Roles: allRoles},
	}
}

// ScreenObject 界面路径对应的授权对象
func ScreenObject(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return screenObjectPrefix + strings.TrimSuffix(path, "/")
}

func screenPolicies(role string) []Policy {
	policies := make([]Policy, 0)
	for _, screen := range Screens() {
		for _, allowed := range screen.Roles {
			if allowed == role {
				policies = append(policies, Policy{Object: ScreenObject(screen.Path), Action: ActionView})
				break
			}
		}
	}
	return policies
}

// CanView 判断角色能否进入界面
func (s *Service) CanView(role, path string) (bool, error) {
	return s.EnforceRole(role, ScreenObject(path), ActionView)
}

// NavigationFor 返回角色可见的侧边栏条目
func (s *Service) NavigationFor(role string) ([]Screen, error) {
	items := make([]Screen, 0)
	for _, screen := range Screens() {
		ok, err := s.CanView(role, screen.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, screen)
		}
	}
	return items, nil
}
