package authz

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix   = "/api/v1"
	policyTable   = "casbin_rule"
	adminSubject  = "admin:"
	rolePrefix    = "role:"
	roleAnchor    = "role:__anchor__" // 角色存在性标记：g(role, anchor)
	groupingRules = "g"
)

// 策略对象为去掉 /api/v1 前缀的路由模式，例如 /admin/products/:id
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable = errors.New("authz service unavailable")
	ErrUnknownRole = errors.New("unknown role")
)

// Policy 角色持有的一条路由授权
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 后台路由 RBAC，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", policyTable)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Authorize 判定管理员能否访问路由；超级管理员直接放行，路由为 gin 的 FullPath
func (s *Service) Authorize(adminID uint, isSuper bool, route, method string) (bool, error) {
	if isSuper {
		return true, nil
	}
	if adminID == 0 {
		return false, nil
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(route), NormalizeAction(method))
}

// ListRoles 已定义角色，按名称排序
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy(groupingRules, 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 && strings.HasPrefix(rule[0], rolePrefix) {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// HasRole 角色是否已定义
func (s *Service) HasRole(role string) (bool, error) {
	name, err := NormalizeRole(role)
	if err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	if name == roleAnchor {
		return false, nil
	}
	return s.enforcer.HasNamedGroupingPolicy(groupingRules, name, roleAnchor)
}

// RolePolicies 角色直接持有的授权（不含继承）
func (s *Service) RolePolicies(role string) ([]Policy, error) {
	name, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, name)
	if err != nil {
		return nil, fmt.Errorf("role policies: %w", err)
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Subject: rule[0], Object: NormalizeObject(rule[1]), Action: NormalizeAction(rule[2])})
	}
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Object != policies[j].Object {
			return policies[i].Object < policies[j].Object
		}
		return policies[i].Action < policies[j].Action
	})
	return policies, nil
}

// SetAdminRoles 覆盖管理员角色；任一角色未定义时不做修改
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return errors.New("admin id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		exists, err := s.HasRole(role)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownRole, strings.TrimPrefix(strings.TrimSpace(role), rolePrefix))
		}
		name, _ := NormalizeRole(role)
		names = append(names, name)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy(groupingRules, 0, subject); err != nil {
		return fmt.Errorf("clear admin roles: %w", err)
	}
	for _, name := range names {
		if _, err := s.enforcer.AddNamedGroupingPolicy(groupingRules, subject, name); err != nil {
			return fmt.Errorf("assign admin role: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 管理员直接持有的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, errors.New("admin id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	assigned, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles: %w", err)
	}
	roles := make([]string, 0, len(assigned))
	for _, role := range assigned {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// SubjectForAdmin 管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return adminSubject + strconv.FormatUint(uint64(adminID), 10)
}

// NormalizeRole 补齐 role: 前缀，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	name = strings.TrimPrefix(name, rolePrefix)
	if name == "" {
		return "", errors.New("role is required")
	}
	return rolePrefix + name, nil
}

// NormalizeObject 去掉 /api/v1 前缀，保证以 / 开头
func NormalizeObject(object string) string {
	path := strings.TrimSpace(object)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	switch {
	case path == apiV1Prefix:
		return "/"
	case strings.HasPrefix(path, apiV1Prefix+"/"):
		return strings.TrimPrefix(path, apiV1Prefix)
	}
	return path
}

// NormalizeAction HTTP 方法大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
