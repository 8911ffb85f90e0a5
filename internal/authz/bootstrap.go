package authz

import (
	"fmt"

	"github.com/cabinstay/internal/constants"
	"github.com/cabinstay/internal/logger"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵；创建管理员仅超级管理员可用，不分配给任何角色
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleCatalogEditor,
			Inherits: []string{constants.RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/categories", Action: "POST"},
				{Object: "/admin/categories/:id", Action: "*"},
				{Object: "/admin/products", Action: "POST"},
				{Object: "/admin/products/:id", Action: "*"},
				{Object: "/admin/upload", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleBookingManager,
			Inherits: []string{constants.RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/room-types", Action: "POST"},
				{Object: "/admin/room-types/:id", Action: "*"},
				{Object: "/admin/rooms", Action: "POST"},
				{Object: "/admin/rooms/:id", Action: "*"},
				{Object: "/admin/reservations/:id/status", Action: "PUT"},
				{Object: "/admin/analytics/daily/:date", Action: "PUT"},
				{Object: "/admin/analytics/rollup", Action: "POST"},
				{Object: "/admin/upload", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复调用
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}

	added := 0
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		ok, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}
		if ok {
			added++
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			ok, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if ok {
				added++
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			ok, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if ok {
				added++
			}
		}
	}
	if added > 0 {
		logger.Infow("authz_builtin_roles_bootstrapped", "rules_added", added)
	}
	return nil
}
