/*
 * @module service/dgm/rule_script
 * @description 自定义过滤规则脚本引擎，基于yaegi解释执行Go片段，带编译缓存
 * @architecture 脚本扩展点 - 解释器模式
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 注册脚本 -> 首次执行时编译并缓存 -> 逐记录求值返回(分数,问题)
 * @rules 脚本必须返回[0,1]分数；脚本编译或执行失败按0分并记录问题，不中断过滤流程
 * @dependencies github.com/traefik/yaegi
 * @refs service/dgm/filter.go
 */

package dgm

import (
	"crypto/sha1"
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// RuleScriptEngine 自定义规则脚本引擎
type RuleScriptEngine struct {
	mu    sync.RWMutex
	cache map[string]*compiledRule
}

type compiledRule struct {
	fn   func(map[string]interface{}) (float64, string)
	hash string
}

// NewRuleScriptEngine 创建规则脚本引擎
func NewRuleScriptEngine() *RuleScriptEngine {
	return &RuleScriptEngine{
		cache: make(map[string]*compiledRule),
	}
}

// Evaluate 对记录字段执行一段规则脚本，返回分数与问题描述（空串表示无问题）
func (e *RuleScriptEngine) Evaluate(script string, fields map[string]interface{}) (float64, string, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = e.compile(script, hash)
		if err != nil {
			return 0, "", fmt.Errorf("规则脚本编译失败: %w", err)
		}
		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	score, issue := compiled.fn(fields)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, issue, nil
}

// compile 包装脚本为带Check入口函数的包并解释编译
func (e *RuleScriptEngine) compile(script, hash string) (*compiledRule, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 包装脚本：要求脚本必须实现一个 Check 函数
	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 必须提供一个 Check 函数作为入口，入参为记录字段，返回(分数, 问题描述)
func Check(fields map[string]interface{}) (float64, string) {
	_ = fmt.Sprint
	_ = strconv.Atoi
	_ = strings.TrimSpace
	_ = time.Now

	// 脚本内容
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("规则脚本编译失败: %w", err)
	}

	v, err := i.Eval("Check")
	if err != nil {
		return nil, fmt.Errorf("规则脚本缺少 Check 函数: %w", err)
	}
	checkFunc, ok := v.Interface().(func(map[string]interface{}) (float64, string))
	if !ok {
		return nil, fmt.Errorf("Check 函数签名必须是 func(map[string]interface{}) (float64, string)")
	}

	return &compiledRule{fn: checkFunc, hash: hash}, nil
}
