package authz

import (
	"fmt"

	"github.com/bluboy-rewards/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 界面策略由 Screens 推导，接口策略按角色单独列出。
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleSuperAdmin,
			Policies: append(screenPolicies(constants.RoleSuperAdmin),
				Policy{Object: "/admin/*", Action: "*"},
			),
			Immutable: true,
		},
		{
			Role: constants.RoleTenantMarketingAdmin,
			Policies: append(screenPolicies(constants.RoleTenantMarketingAdmin),
				Policy{Object: "/admin/navigation", Action: "GET"},
				Policy{Object: "/admin/navigation/*", Action: "GET"},
				Policy{Object: "/admin/dashboard/*", Action: "GET"},
				Policy{Object: "/admin/analytics/*", Action: "GET"},
				Policy{Object: "/admin/merchants", Action: "GET"},
				Policy{Object: "/admin/events", Action: "*"},
				Policy{Object: "/admin/events/:id", Action: "*"},
				Policy{Object: "/admin/events/:id/activate", Action: "POST"},
				Policy{Object: "/admin/events/:id/cancel", Action: "POST"},
			),
			Immutable: true,
		},
		{
			Role: constants.RoleMerchantAdmin,
			Policies: append(screenPolicies(constants.RoleMerchantAdmin),
				Policy{Object: "/admin/navigation", Action: "GET"},
				Policy{Object: "/admin/navigation/*", Action: "GET"},
				Policy{Object: "/admin/dashboard/*", Action: "GET"},
				Policy{Object: "/admin/analytics/*", Action: "GET"},
				Policy{Object: "/admin/events", Action: "GET"},
				Policy{Object: "/admin/events/:id", Action: "GET"},
				Policy{Object: "/admin/rewards", Action: "GET"},
				Policy{Object: "/admin/rewards/:id", Action: "GET"},
				Policy{Object: "/admin/rewards/distribute", Action: "POST"},
				Policy{Object: "/admin/rewards/:id/distribute", Action: "POST"},
				Policy{Object: "/admin/rewards/:id/cancel", Action: "POST"},
				Policy{Object: "/admin/claims/*", Action: "*"},
			),
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
			if err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		// 预置角色的策略集合以代码为准，多余的旧策略移除
		if seed.Immutable {
			removed, err := s.pruneRolePolicies(role, seed.Policies)
			if err != nil {
				return err
			}
			if removed {
				changed = true
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if added {
				changed = true
			}
		}
	}

	if changed {
		return s.saveAndReload()
	}
	return nil
}

func (s *Service) pruneRolePolicies(role string, keep []Policy) (bool, error) {
	wanted := make(map[string]struct{}, len(keep))
	for _, policy := range keep {
		wanted[NormalizeObject(policy.Object)+"|"+NormalizeAction(policy.Action)] = struct{}{}
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, role)
	if err != nil {
		return false, fmt.Errorf("list builtin policy failed: %w", err)
	}
	changed := false
	for _, item := range convertPolicies(rules) {
		if _, ok := wanted[item.Object+"|"+item.Action]; ok {
			continue
		}
		removed, err := s.enforcer.RemovePolicy(role, item.Object, item.Action)
		if err != nil {
			return false, fmt.Errorf("remove stale builtin policy failed: %w", err)
		}
		if removed {
			changed = true
		}
	}
	return changed, nil
}
