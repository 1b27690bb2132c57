/*
 * @module service/models/generation_models
 * @description 数据生成核心模型，包含生成条件、生成记录（有序字段+私有元数据）、学习统计、评估结果与输出束
 * @architecture 数据模型层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 调度器产出生成条件 -> 分解器产出记录 -> 过滤/增强写入元数据 -> 评估产出结果束
 * @rules 记录身份字段 gantry_transaction_id 在 identity 组生成后不可再变更；元数据不随字段序列化
 * @dependencies github.com/spf13/cast, time
 * @refs service/dgm
 */

package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// GenerationCondition 生成条件，由调度器产出、分解器消费，创建后不可变
type GenerationCondition struct {
	VehicleCategory string    `json:"vehicle_category"`
	TimePeriod      string    `json:"time_period"`
	Scenario        string    `json:"scenario"`
	BaseTime        time.Time `json:"base_time"`
}

// Correction 一次字段修正记录
type Correction struct {
	Field  string `json:"field"`
	Old    string `json:"old"`
	New    string `json:"new"`
	Reason string `json:"reason"`
}

// RecordMeta 记录的私有元数据，不随字段一起序列化
type RecordMeta struct {
	QualityScore     float64
	QualityWeight    float64
	ValidationIssues []string
	CorrectionLog    []Correction
}

// GantryRecord 门架交易记录：字段名到值的有序映射，附带私有元数据
type GantryRecord struct {
	fields map[string]interface{}
	order  []string
	Meta   RecordMeta
}

// RecordIdentityField 记录的身份字段，identity 组生成后不可再被覆盖
const RecordIdentityField = "gantry_transaction_id"

// NewGantryRecord 创建空的门架交易记录
func NewGantryRecord() *GantryRecord {
	return &GantryRecord{
		fields: make(map[string]interface{}, 19),
		order:  make([]string, 0, 19),
	}
}

// Set 写入字段值，保持首次写入顺序；身份字段一经写入不可覆盖
func (r *GantryRecord) Set(field string, value interface{}) {
	if _, exists := r.fields[field]; exists {
		if field == RecordIdentityField {
			return
		}
	} else {
		r.order = append(r.order, field)
	}
	r.fields[field] = value
}

// Get 读取字段原始值
func (r *GantryRecord) Get(field string) (interface{}, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has 判断字段是否存在且非空
func (r *GantryRecord) Has(field string) bool {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// GetString 按字符串读取字段值
func (r *GantryRecord) GetString(field string) string {
	return cast.ToString(r.fields[field])
}

// GetInt 按整数读取字段值，兼容字符串和浮点表示
func (r *GantryRecord) GetInt(field string) int {
	v, ok := r.fields[field]
	if !ok {
		return 0
	}
	if s, isStr := v.(string); isStr {
		// 兼容"90000.0"这类字符串里程
		return int(cast.ToFloat64(s))
	}
	return cast.ToInt(v)
}

// GetTime 按ISO时间读取字段值，解析失败返回零值
func (r *GantryRecord) GetTime(field string) (time.Time, bool) {
	s := r.GetString(field)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FieldNames 按写入顺序返回全部字段名
func (r *GantryRecord) FieldNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ID 记录身份（门架交易ID）
func (r *GantryRecord) ID() string {
	return r.GetString(RecordIdentityField)
}

// AppendCorrection 追加一条修正日志，任何修复都不允许静默
func (r *GantryRecord) AppendCorrection(field, old, new, reason string) {
	r.Meta.CorrectionLog = append(r.Meta.CorrectionLog, Correction{
		Field: field, Old: old, New: new, Reason: reason,
	})
}

// Clone 深拷贝记录（字段与元数据）
func (r *GantryRecord) Clone() *GantryRecord {
	clone := NewGantryRecord()
	for _, name := range r.order {
		clone.order = append(clone.order, name)
		clone.fields[name] = r.fields[name]
	}
	clone.Meta.QualityScore = r.Meta.QualityScore
	clone.Meta.QualityWeight = r.Meta.QualityWeight
	clone.Meta.ValidationIssues = append([]string(nil), r.Meta.ValidationIssues...)
	clone.Meta.CorrectionLog = append([]Correction(nil), r.Meta.CorrectionLog...)
	return clone
}

// MarshalJSON 按字段写入顺序序列化为JSON对象，元数据不输出
func (r *GantryRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.fields[name])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 从JSON对象反序列化，保持键出现顺序
func (r *GantryRecord) UnmarshalJSON(data []byte) error {
	r.fields = make(map[string]interface{}, 19)
	r.order = r.order[:0]

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	// 读取开头的 {
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyToken.(string)
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if number, ok := value.(json.Number); ok {
			if i, err := number.Int64(); err == nil {
				value = int(i)
			} else {
				value, _ = number.Float64()
			}
		}
		r.Set(key, value)
	}
	return nil
}

// FieldStats 单个数值字段的统计特征
type FieldStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CategoryStats 按车辆类别的统计特征：各数值字段统计 + 费用与里程的相关系数
type CategoryStats struct {
	Fields      map[string]FieldStats `json:"fields"`
	Correlation float64               `json:"correlation"`
	SampleCount int                   `json:"sample_count"`
}

// LearnedStatistics 从参考样本池学习到的统计信息，计算完成后不可变
type LearnedStatistics struct {
	ByCategory map[string]CategoryStats `json:"by_category"`
	Overall    CategoryStats            `json:"overall"`
}

// DirectEvaluation 直接评估结果：内部合法性（忠实度）与内部差异性（多样性）
type DirectEvaluation struct {
	Faithfulness        float64        `json:"faithfulness"`
	Diversity           float64        `json:"diversity"`
	Overall             float64        `json:"overall"`
	ConstraintPassRate  float64        `json:"constraint_pass_rate"`
	BenchmarkSimilarity float64        `json:"benchmark_similarity"`
	CommonIssues        map[string]int `json:"common_issues,omitempty"`
	Empty               bool           `json:"empty,omitempty"` // 输入为空时的显式标记
}

// BenchmarkSimilarity 与基准样本池的相似度各分项
type BenchmarkSimilarity struct {
	Distribution  float64 `json:"distribution"`
	Statistical   float64 `json:"statistical"`
	HourlyPattern float64 `json:"hourly_pattern"`
	Correlation   float64 `json:"correlation"`
	Overall       float64 `json:"overall"`
	Empty         bool    `json:"empty,omitempty"`
}

// IndirectEvaluation 间接评估结果：外部相似度与下游代理任务表现
type IndirectEvaluation struct {
	BenchmarkSimilarity float64            `json:"benchmark_similarity"`
	OpenEvaluation      map[string]float64 `json:"open_evaluation"`
	Overall             float64            `json:"overall"`
	Empty               bool               `json:"empty,omitempty"`
}

// EvaluationResult 一次生成运行的完整评估结果，整体产出且不做部分更新
type EvaluationResult struct {
	Direct   DirectEvaluation   `json:"direct"`
	Indirect IndirectEvaluation `json:"indirect"`
}

// QualityTiers 质量分层
type QualityTiers struct {
	High   []*GantryRecord `json:"high"`
	Medium []*GantryRecord `json:"medium"`
	Low    []*GantryRecord `json:"low"`
}

// GenerateStatistics 生成过程统计
type GenerateStatistics struct {
	Requested      int  `json:"requested"`
	Attempts       int  `json:"attempts"`
	RawCount       int  `json:"raw_count"`
	AcceptedCount  int  `json:"accepted_count"`
	RejectedCount  int  `json:"rejected_count"`
	RecoveredCount int  `json:"recovered_count"` // 经增强器修复后仍被接受的样本数
	FinalCount     int  `json:"final_count"`
	FallbackCount  int  `json:"fallback_count"`
	Aborted        bool `json:"aborted"`
}

// GenerateResult 生成流程的输出束，JSON结构是对外边界契约，保持稳定
type GenerateResult struct {
	Samples         []*GantryRecord    `json:"samples"`
	WeightedSamples []*GantryRecord    `json:"weighted_samples"`
	QualityTiers    QualityTiers       `json:"quality_tiers"`
	Evaluation      EvaluationResult   `json:"evaluation"`
	Statistics      GenerateStatistics `json:"statistics"`
}

// TargetDistribution 目标分布：维度 -> 类别 -> 目标占比
type TargetDistribution map[string]map[string]float64

// DefaultTargetDistribution 缺省目标分布
func DefaultTargetDistribution() TargetDistribution {
	return TargetDistribution{
		"vehicle":  {"truck": 0.6, "passenger": 0.4},
		"time":     {"morning_rush": 0.25, "evening_rush": 0.25, "off_peak": 0.40, "night": 0.10},
		"scenario": {"normal": 0.90, "overloaded": 0.06, "anomalous": 0.04},
	}
}
