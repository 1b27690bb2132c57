/*
 * @module service/dgm/errors
 * @description 生成管线的错误类型定义，区分致命配置错误与可恢复的运行时失败
 * @architecture 错误处理层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 配置错误在初始化阶段直接失败；预言机/校验失败在运行期降级处理
 * @rules 配置错误（字段组成环、字段缺失、训练池为空）必须在生成开始前暴露
 * @dependencies errors
 * @refs service/dgm/schema.go, service/dgm/generator.go
 */

package dgm

import (
	"errors"
	"fmt"
)

// ConfigError 致命配置错误，初始化阶段发现后拒绝进入生成流程
type ConfigError struct {
	Item string // 出错的配置项
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误[%s]: %s", e.Item, e.Msg)
}

// NewConfigError 创建配置错误
func NewConfigError(item, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Item: item, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError 判断错误链中是否包含配置错误
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ErrNotInitialized 未初始化即调用生成
var ErrNotInitialized = errors.New("生成器尚未初始化，请先调用Initialize加载样本池")

// ErrOracleUnavailable 预言机不可用（未配置或调用失败），触发规则回退
var ErrOracleUnavailable = errors.New("文本生成预言机不可用")
