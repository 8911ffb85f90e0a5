package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SpecKind 规格值类型
type SpecKind string

const (
	SpecString SpecKind = "string"
	SpecNumber SpecKind = "number"
	SpecBool   SpecKind = "bool"
	SpecObject SpecKind = "object"
)

// ParseSpecKind 解析配置中的类型名
func ParseSpecKind(raw string) (SpecKind, error) {
	switch kind := SpecKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case SpecString, SpecNumber, SpecBool, SpecObject:
		return kind, nil
	case "boolean":
		return SpecBool, nil
	default:
		return "", fmt.Errorf("unknown specification kind %q", raw)
	}
}

// SpecValue 规格值：标量或嵌套映射
type SpecValue struct {
	Kind   SpecKind
	Str    string
	Num    json.Number
	Bool   bool
	Fields map[string]SpecValue
}

// StringSpec 构造字符串规格值
func StringSpec(s string) SpecValue { return SpecValue{Kind: SpecString, Str: s} }

// NumberSpec 构造数字规格值
func NumberSpec(n string) SpecValue { return SpecValue{Kind: SpecNumber, Num: json.Number(n)} }

// BoolSpec 构造布尔规格值
func BoolSpec(b bool) SpecValue { return SpecValue{Kind: SpecBool, Bool: b} }

// ObjectSpec 构造嵌套规格值
func ObjectSpec(fields map[string]SpecValue) SpecValue {
	return SpecValue{Kind: SpecObject, Fields: fields}
}

var errSpecValueType = errors.New("specification values must be string, number, bool or object")

// MarshalJSON 实现 json.Marshaler
func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SpecString:
		return json.Marshal(v.Str)
	case SpecNumber:
		if v.Num == "" {
			return []byte("0"), nil
		}
		return []byte(v.Num.String()), nil
	case SpecBool:
		return json.Marshal(v.Bool)
	case SpecObject:
		if v.Fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Fields)
	default:
		return nil, errSpecValueType
	}
}

// UnmarshalJSON 实现 json.Unmarshaler；数组与 null 被拒绝
func (v *SpecValue) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return errSpecValueType
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringSpec(s)
	case '{':
		fields := map[string]SpecValue{}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		*v = ObjectSpec(fields)
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(trimmed, &flag); err != nil {
			return err
		}
		*v = BoolSpec(flag)
	case '[', 'n':
		return errSpecValueType
	default:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return err
		}
		*v = SpecValue{Kind: SpecNumber, Num: n}
	}
	return nil
}

// Specifications 商品规格映射
type Specifications map[string]SpecValue

// Value 实现 driver.Valuer 接口
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]SpecValue(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (s *Specifications) Scan(value interface{}) error {
	*s = Specifications{}
	return scanJSON(value, s)
}

// SpecSchema 规格键到类型的约束
type SpecSchema struct {
	Kinds    map[string]SpecKind
	Required []string
}

// Validate 按 schema 校验顶层键；未声明的键允许任意类型
func (s Specifications) Validate(schema SpecSchema) error {
	var problems []string
	for _, key := range schema.Required {
		if _, ok := s[key]; !ok {
			problems = append(problems, fmt.Sprintf("%s is required", key))
		}
	}
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			problems = append(problems, "empty specification key")
			continue
		}
		want, ok := schema.Kinds[key]
		if ok && s[key].Kind != want {
			problems = append(problems, fmt.Sprintf("%s must be %s", key, want))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Interface 转为普通 Go 值，数字统一为 float64
func (v SpecValue) Interface() interface{} {
	switch v.Kind {
	case SpecString:
		return v.Str
	case SpecNumber:
		f, _ := v.Num.Float64()
		return f
	case SpecBool:
		return v.Bool
	case SpecObject:
		out := make(map[string]interface{}, len(v.Fields))
		for key, field := range v.Fields {
			out[key] = field.Interface()
		}
		return out
	default:
		return nil
	}
}

// Plain 转为普通映射，供规则表达式读取
func (s Specifications) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for key, value := range s {
		out[key] = value.Interface()
	}
	return out
}
