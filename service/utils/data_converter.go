/**
 * @module data_converter
 * @description 数据转换工具模块，负责采集口径字段的类型转换、GBK编码转换与时间解析
 * @architecture 工具函数模式，提供静态转换方法集合
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换操作需要处理异常情况
 *   - 编码转换需要支持GBK历史数据
 *   - 时间转换统一输出本地无时区格式
 * @dependencies
 *   - golang.org/x/text: GBK编码转换
 *   - time, strconv: 基础转换
 * @refs
 *   - service/pool: 样本池加载
 */

package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DataConverter 数据转换器
type DataConverter struct{}

// NewDataConverter 创建新的数据转换器实例
func NewDataConverter() *DataConverter {
	return &DataConverter{}
}

// ToString 转换为字符串
func (dc *DataConverter) ToString(value interface{}) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	case time.Time:
		return v.Format("2006-01-02T15:04:05")
	default:
		return fmt.Sprintf("%v", value)
	}
}

// ToInt 转换为整数，兼容带小数点的字符串表示
func (dc *DataConverter) ToInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("nil值无法转换为整数")
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("空字符串无法转换为整数")
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("字符串%q无法转换为整数", v)
	default:
		return 0, fmt.Errorf("类型%T无法转换为整数", value)
	}
}

// GBKToUTF8 GBK字节序列转UTF-8字符串
func (dc *DataConverter) GBKToUTF8(data []byte) (string, error) {
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("GBK解码失败: %w", err)
	}
	return string(decoded), nil
}

// UTF8ToGBK UTF-8字符串转GBK字节序列
func (dc *DataConverter) UTF8ToGBK(s string) ([]byte, error) {
	encoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("GBK编码失败: %w", err)
	}
	return encoded, nil
}

// NormalizeSectionName 归一化路段名称：历史来源可能是GBK编码，统一转为UTF-8并裁剪空白
func (dc *DataConverter) NormalizeSectionName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || utf8.ValidString(s) {
		return s
	}
	if decoded, err := dc.GBKToUTF8([]byte(s)); err == nil {
		return strings.TrimSpace(decoded)
	}
	return s
}

// ParseTime 按采集口径的常见布局解析时间
func (dc *DataConverter) ParseTime(timeStr string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"20060102150405",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", timeStr)
}

// FormatTime 统一输出本地无时区格式
func (dc *DataConverter) FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
