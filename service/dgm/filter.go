/*
 * @module service/dgm/filter
 * @description 样本过滤器：完整性/类型格式/时序/费用合理性/轴重五项检查取平均分，按阈值划分接受与拒绝
 * @architecture 领域服务层 - 质量门禁
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow Evaluate逐项打分 -> 平均 -> Filter按阈值分区；拒绝样本保留问题列表不自动重试
 * @rules 各子项分数均在[0,1]；费用合理性容差带取自学习统计；自定义脚本检查并入平均
 * @dependencies math, github.com/spf13/cast
 * @refs service/dgm/statistics.go, service/dgm/rule_script.go
 */

package dgm

import (
	"fmt"
	"log/slog"
	"math"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/spf13/cast"
)

// feeToleranceFloor 费用偏差容差带下限
const feeToleranceFloor = 0.3

// SampleFilter 样本过滤器
type SampleFilter struct {
	stats     *models.LearnedStatistics
	threshold float64

	scriptEngine  *RuleScriptEngine
	customScripts []string
}

// NewSampleFilter 创建过滤器，threshold<=0时使用缺省阈值
func NewSampleFilter(stats *models.LearnedStatistics, threshold float64) *SampleFilter {
	if threshold <= 0 {
		threshold = meta.DefaultAcceptThreshold
	}
	return &SampleFilter{
		stats:        stats,
		threshold:    threshold,
		scriptEngine: NewRuleScriptEngine(),
	}
}

// AddCustomScript 注册一段自定义规则脚本，其分数并入平均
func (f *SampleFilter) AddCustomScript(script string) {
	f.customScripts = append(f.customScripts, script)
}

// Threshold 当前通过阈值
func (f *SampleFilter) Threshold() float64 {
	return f.threshold
}

// Evaluate 五项检查取平均分，返回分数与问题列表
func (f *SampleFilter) Evaluate(r *models.GantryRecord) (float64, []string) {
	var issues []string
	scores := make([]float64, 0, 5+len(f.customScripts))

	appendCheck := func(score float64, checkIssues []string) {
		scores = append(scores, score)
		issues = append(issues, checkIssues...)
	}
	appendCheck(f.checkCompleteness(r))
	appendCheck(f.checkTypeFormat(r))
	appendCheck(f.checkTemporal(r))
	appendCheck(f.checkFee(r))
	appendCheck(f.checkAxleWeight(r))

	for _, script := range f.customScripts {
		fields := make(map[string]interface{})
		for _, name := range r.FieldNames() {
			v, _ := r.Get(name)
			fields[name] = v
		}
		score, issue, err := f.scriptEngine.Evaluate(script, fields)
		if err != nil {
			slog.Warn("自定义规则脚本执行失败", "error", err)
			appendCheck(0, []string{"custom_rule_error"})
			continue
		}
		var checkIssues []string
		if issue != "" {
			checkIssues = []string{issue}
		}
		appendCheck(score, checkIssues)
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total / float64(len(scores)), issues
}

// Filter 按阈值划分接受与拒绝，两侧均写入质量分数与问题列表
func (f *SampleFilter) Filter(records []*models.GantryRecord) (accepted, rejected []*models.GantryRecord) {
	for _, r := range records {
		score, issues := f.Evaluate(r)
		r.Meta.QualityScore = score
		r.Meta.ValidationIssues = issues
		if score >= f.threshold {
			accepted = append(accepted, r)
		} else {
			rejected = append(rejected, r)
		}
	}
	return accepted, rejected
}

// checkCompleteness 必填字段存在比例
func (f *SampleFilter) checkCompleteness(r *models.GantryRecord) (float64, []string) {
	var issues []string
	present := 0
	for _, field := range meta.RequiredFields {
		if r.Has(field) {
			present++
		} else {
			issues = append(issues, fmt.Sprintf("missing_field:%s", field))
		}
	}
	return float64(present) / float64(len(meta.RequiredFields)), issues
}

// checkTypeFormat 数值字段可转数值、时间字段可解析、车型代码在已知范围
func (f *SampleFilter) checkTypeFormat(r *models.GantryRecord) (float64, []string) {
	var issues []string
	checks, passed := 0, 0

	for _, field := range NumericFields {
		if !r.Has(field) {
			continue
		}
		checks++
		v, _ := r.Get(field)
		if _, err := cast.ToFloat64E(v); err != nil {
			issues = append(issues, fmt.Sprintf("invalid_numeric:%s", field))
		} else {
			passed++
		}
	}

	for _, field := range []string{"transaction_time", "entrance_time"} {
		if !r.Has(field) {
			continue
		}
		checks++
		if _, ok := r.GetTime(field); ok {
			passed++
		} else {
			issues = append(issues, fmt.Sprintf("invalid_time:%s", field))
		}
	}

	if r.Has("vehicle_type") {
		checks++
		if _, ok := meta.ExpectedAxles[r.GetString("vehicle_type")]; ok {
			passed++
		} else {
			issues = append(issues, "unknown_vehicle_type")
		}
	}

	if checks == 0 {
		return 0, []string{"no_typed_fields"}
	}
	return float64(passed) / float64(checks), issues
}

// checkTemporal 入口时间早于交易时间，且行程时长在合理区间内
func (f *SampleFilter) checkTemporal(r *models.GantryRecord) (float64, []string) {
	transaction, hasTx := r.GetTime("transaction_time")
	entrance, hasEntrance := r.GetTime("entrance_time")
	if !hasTx || !hasEntrance {
		// 入口信息缺失由完整性检查负责扣分
		return 1, nil
	}
	if !entrance.Before(transaction) {
		return 0, []string{"entrance_after_transaction"}
	}
	travelHours := transaction.Sub(entrance).Hours()
	if travelHours < meta.MinTravelHours || travelHours > meta.MaxTravelHours {
		return 0.5, []string{fmt.Sprintf("implausible_travel_time:%.1fh", travelHours)}
	}
	return 1, nil
}

// checkFee 费用非负且与里程大致成比例，容差带参考学习统计的变异系数
func (f *SampleFilter) checkFee(r *models.GantryRecord) (float64, []string) {
	var issues []string
	payFee := r.GetInt("pay_fee")
	discountFee := r.GetInt("discount_fee")
	mileage := r.GetInt("fee_mileage")

	if payFee < 0 || discountFee < 0 {
		return 0, []string{"negative_fee"}
	}
	if mileage <= 0 {
		return 0.5, []string{"non_positive_mileage"}
	}

	expected := meta.ExpectedFee(mileage, r.GetString("vehicle_type"))
	if expected <= 0 {
		return 1, nil
	}
	deviation := math.Abs(float64(payFee-expected)) / float64(expected)
	tolerance := f.feeTolerance(r)
	if deviation <= tolerance {
		return 1, nil
	}
	issues = append(issues, fmt.Sprintf("fee_mileage_mismatch:dev=%.2f", deviation))
	score := 1 - (deviation - tolerance)
	if score < 0 {
		score = 0
	}
	return score, issues
}

// feeTolerance 容差带：缺省下限与该类别费用变异系数取大者
func (f *SampleFilter) feeTolerance(r *models.GantryRecord) float64 {
	tolerance := feeToleranceFloor
	if f.stats == nil {
		return tolerance
	}
	category := VehicleCategoryOf(r.GetString("vehicle_type"))
	if cs, ok := f.stats.ByCategory[category]; ok {
		if fs, ok := cs.Fields["pay_fee"]; ok && fs.Mean > 0 {
			if cv := fs.Std / fs.Mean; cv > tolerance {
				tolerance = cv
			}
		}
	}
	return tolerance
}

// checkAxleWeight 轴数与车型匹配、总重不超限、客车重量在合理区间
func (f *SampleFilter) checkAxleWeight(r *models.GantryRecord) (float64, []string) {
	var issues []string
	score := 1.0

	vehicleType := r.GetString("vehicle_type")
	axleCount := r.GetString("axle_count")
	weight := r.GetInt("total_weight")

	if expected, ok := meta.ExpectedAxles[vehicleType]; ok && axleCount != "" && axleCount != expected {
		issues = append(issues, fmt.Sprintf("axle_mismatch:got=%s,want=%s", axleCount, expected))
		score -= 0.5
	}

	category := VehicleCategoryOf(vehicleType)
	switch category {
	case meta.VehicleCategoryPassenger:
		if weight > 0 && (weight < meta.PassengerWeightMin || weight > meta.PassengerWeightMax) {
			issues = append(issues, "passenger_weight_out_of_range")
			score -= 0.5
		}
	default:
		if weight > meta.AxleWeightLimit(axleCount) {
			issues = append(issues, "overweight")
			score -= 0.5
		}
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}
