package service

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleSet 一组版本化的布尔校验表达式，全部为 true 才算通过
type RuleSet struct {
	Version int
	rules   []compiledRule
}

type compiledRule struct {
	source  string
	program *vm.Program
}

// ProductRuleEnv 商品规则可见的字段
type ProductRuleEnv struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	HasCategory bool
	Images      int
	Specs       map[string]interface{}
}

// ReservationRuleEnv 预订规则可见的字段
type ReservationRuleEnv struct {
	ContactName  string
	ContactEmail string
	ContactPhone string
	Guests       int
	Nights       int
	Capacity     int
}

// CompileRuleSet 按 env 类型编译规则，表达式必须返回 bool
func CompileRuleSet(version int, sources []string, env interface{}) (*RuleSet, error) {
	set := &RuleSet{Version: version}
	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q (v%d): %w", source, version, err)
		}
		set.rules = append(set.rules, compiledRule{source: source, program: program})
	}
	return set, nil
}

// Len 规则数量
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Check 依次执行规则，返回第一条未通过的规则
func (s *RuleSet) Check(env interface{}) error {
	if s == nil {
		return nil
	}
	for _, rule := range s.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRuleViolation, rule.source, err)
		}
		if ok, _ := out.(bool); !ok {
			return fmt.Errorf("%w: %s", ErrRuleViolation, rule.source)
		}
	}
	return nil
}
