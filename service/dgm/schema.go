/*
 * @module service/dgm/schema
 * @description 字段组依赖图校验与拓扑排序，为分解器确定字段组的生成顺序
 * @architecture 领域服务层 - 静态配置加载
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 加载时校验一次，排序结果缓存后只读
 * @rules 依赖成环、引用未声明的组、字段重复声明均为致命配置错误；并列组按声明顺序决胜
 * @dependencies 无外部依赖
 * @refs service/meta/field_groups.go, service/dgm/decomposer.go
 */

package dgm

import (
	"gantry-dgm-service/service/meta"
)

// FieldGroupSchema 校验过的字段组模式，持有拓扑排序后的生成顺序
type FieldGroupSchema struct {
	groups  []meta.FieldGroupConfig
	byName  map[string]meta.FieldGroupConfig
	ordered []meta.FieldGroupConfig
}

// NewFieldGroupSchema 从字段组配置构建模式，校验依赖图并完成拓扑排序
func NewFieldGroupSchema(groups []meta.FieldGroupConfig) (*FieldGroupSchema, error) {
	if len(groups) == 0 {
		return nil, NewConfigError("field_groups", "字段组配置为空")
	}

	byName := make(map[string]meta.FieldGroupConfig, len(groups))
	seenField := make(map[string]string)
	for _, g := range groups {
		if _, dup := byName[g.Name]; dup {
			return nil, NewConfigError("field_groups", "字段组重复声明: %s", g.Name)
		}
		if len(g.Fields) == 0 {
			return nil, NewConfigError("field_groups", "字段组%s不含任何字段", g.Name)
		}
		byName[g.Name] = g
		for _, f := range g.Fields {
			if owner, dup := seenField[f]; dup {
				return nil, NewConfigError("field_groups", "字段%s同时属于%s和%s", f, owner, g.Name)
			}
			seenField[f] = g.Name
		}
	}
	for _, g := range groups {
		for _, dep := range g.Requires {
			if _, ok := byName[dep]; !ok {
				return nil, NewConfigError("field_groups", "字段组%s依赖未声明的组%s", g.Name, dep)
			}
		}
	}

	ordered, err := topoSort(groups, byName)
	if err != nil {
		return nil, err
	}

	return &FieldGroupSchema{groups: groups, byName: byName, ordered: ordered}, nil
}

// topoSort Kahn算法拓扑排序，每轮在零入度的组中按声明顺序取最靠前者，保证排序稳定
func topoSort(groups []meta.FieldGroupConfig, byName map[string]meta.FieldGroupConfig) ([]meta.FieldGroupConfig, error) {
	indegree := make(map[string]int, len(groups))
	for _, g := range groups {
		indegree[g.Name] = len(g.Requires)
	}

	ordered := make([]meta.FieldGroupConfig, 0, len(groups))
	done := make(map[string]bool, len(groups))
	for len(ordered) < len(groups) {
		picked := ""
		for _, g := range groups {
			if !done[g.Name] && indegree[g.Name] == 0 {
				picked = g.Name
				break
			}
		}
		if picked == "" {
			return nil, NewConfigError("field_groups", "字段组依赖存在环路，无法确定生成顺序")
		}
		done[picked] = true
		ordered = append(ordered, byName[picked])
		for _, g := range groups {
			if done[g.Name] {
				continue
			}
			for _, dep := range g.Requires {
				if dep == picked {
					indegree[g.Name]--
				}
			}
		}
	}
	return ordered, nil
}

// Ordered 按生成顺序返回字段组
func (s *FieldGroupSchema) Ordered() []meta.FieldGroupConfig {
	return s.ordered
}

// Group 按名称取字段组
func (s *FieldGroupSchema) Group(name string) (meta.FieldGroupConfig, bool) {
	g, ok := s.byName[name]
	return g, ok
}

// AllFields 按生成顺序展开全部字段
func (s *FieldGroupSchema) AllFields() []string {
	fields := make([]string, 0, 19)
	for _, g := range s.ordered {
		fields = append(fields, g.Fields...)
	}
	return fields
}
