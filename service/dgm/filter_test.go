/*
 * @module service/dgm/filter_test
 * @description 样本过滤器测试：五项检查打分、容差带、阈值分区与自定义规则脚本
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 各子项分数均在[0,1]，平均分与问题列表必须一致
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/filter.go
 */

package dgm

import (
	"testing"
	"time"

	"gantry-dgm-service/service/models"
	"gantry-dgm-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodRecord() *models.GantryRecord {
	tx := testutil.MakeGantryTransaction(0, time.Date(2023, 2, 20, 8, 0, 0, 0, time.UTC))
	return tx.ToRecord()
}

func TestFilterAcceptsSelfConsistentRecord(t *testing.T) {
	f := NewSampleFilter(nil, 0)
	score, issues := f.Evaluate(goodRecord())
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Empty(t, issues)
}

func TestFilterChecks(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.GantryRecord)
		wantScore float64
		wantIssue string
	}{
		{
			name:      "必填字段缺失",
			mutate:    func(r *models.GantryRecord) { r.Set("vehicle_type", "") },
			wantScore: (6.0/7 + 1.0 + 1 + 1 + 1) / 5, // 完整性6/7，车型缺失后类型检查跳过车型项
			wantIssue: "missing_field:vehicle_type",
		},
		{
			name:      "负费用",
			mutate:    func(r *models.GantryRecord) { r.Set("pay_fee", -100) },
			wantScore: 0.8,
			wantIssue: "negative_fee",
		},
		{
			name:      "入口时间晚于交易时间",
			mutate:    func(r *models.GantryRecord) { r.Set("entrance_time", "2023-02-20T09:00:00") },
			wantScore: 0.8,
			wantIssue: "entrance_after_transaction",
		},
		{
			name:      "行程时长越界",
			mutate:    func(r *models.GantryRecord) { r.Set("entrance_time", "2023-02-19T08:00:00") },
			wantScore: 0.9,
			wantIssue: "implausible_travel_time:24.0h",
		},
		{
			name:      "里程非正",
			mutate:    func(r *models.GantryRecord) { r.Set("fee_mileage", 0) },
			wantScore: 0.9,
			wantIssue: "non_positive_mileage",
		},
		{
			name: "轴数与车型不匹配",
			mutate: func(r *models.GantryRecord) {
				r.Set("vehicle_type", "13")
				r.Set("total_weight", 15000)
			},
			// 费用按客车费率生成，对货车费率偏差超容差也会扣分
			wantScore: -1, // 分数不定，只断言问题
			wantIssue: "axle_mismatch:got=2,want=3",
		},
		{
			name: "货车超限",
			mutate: func(r *models.GantryRecord) {
				r.Set("vehicle_type", "13")
				r.Set("axle_count", "3")
				r.Set("total_weight", 99000)
			},
			wantScore: 0.9,
			wantIssue: "overweight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := goodRecord()
			tt.mutate(r)
			f := NewSampleFilter(nil, 0)
			score, issues := f.Evaluate(r)
			if tt.wantScore >= 0 {
				assert.InDelta(t, tt.wantScore, score, 1e-9)
			} else {
				assert.Less(t, score, 1.0)
			}
			if tt.wantIssue != "" {
				assert.Contains(t, issues, tt.wantIssue)
			}
		})
	}
}

func TestFilterPassengerOverweight(t *testing.T) {
	r := goodRecord()
	r.Set("total_weight", 9000) // 客车重量超出合理区间

	f := NewSampleFilter(nil, 0)
	_, issues := f.Evaluate(r)
	assert.Contains(t, issues, "passenger_weight_out_of_range")
}

func TestFilterFeeDeviationPartialCredit(t *testing.T) {
	r := goodRecord()
	expected := r.GetInt("pay_fee")
	r.Set("pay_fee", expected+expected/2) // 偏差50%

	f := NewSampleFilter(nil, 0)
	score, issues := f.Evaluate(r)
	// 费用检查得 1-(0.5-0.3)=0.8，其余四项满分
	assert.InDelta(t, (1+1+1+0.8+1)/5.0, score, 1e-9)
	assert.Contains(t, issues, "fee_mileage_mismatch:dev=0.50")
}

func TestFilterFeeToleranceWidensWithStats(t *testing.T) {
	r := goodRecord()
	expected := r.GetInt("pay_fee")
	r.Set("pay_fee", expected+expected*2/5) // 偏差40%

	stats := &models.LearnedStatistics{
		ByCategory: map[string]models.CategoryStats{
			"passenger": {
				Fields: map[string]models.FieldStats{
					"pay_fee": {Mean: 1000, Std: 500}, // 变异系数0.5
				},
			},
		},
	}
	f := NewSampleFilter(stats, 0)
	score, _ := f.Evaluate(r)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestFilterPartition(t *testing.T) {
	good := goodRecord()
	bad := goodRecord()
	bad.Set("pay_fee", -1)
	bad.Set("entrance_time", "2023-02-20T09:00:00")

	f := NewSampleFilter(nil, 0)
	accepted, rejected := f.Filter([]*models.GantryRecord{good, bad})
	require.Len(t, accepted, 1)
	require.Len(t, rejected, 1)
	assert.InDelta(t, 1.0, accepted[0].Meta.QualityScore, 1e-9)
	assert.InDelta(t, 0.6, rejected[0].Meta.QualityScore, 1e-9)
	assert.NotEmpty(t, rejected[0].Meta.ValidationIssues)
}

func TestFilterCustomScript(t *testing.T) {
	f := NewSampleFilter(nil, 0)
	f.AddCustomScript(`
	if fields["pay_fee"] == nil {
		return 0, "missing_pay_fee"
	}
	return 1, ""`)

	score, issues := f.Evaluate(goodRecord())
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Empty(t, issues)

	empty := models.NewGantryRecord()
	empty.Set("vehicle_type", "1")
	_, issues = f.Evaluate(empty)
	assert.Contains(t, issues, "missing_pay_fee")
}

func TestFilterBrokenScriptScoresZero(t *testing.T) {
	f := NewSampleFilter(nil, 0)
	f.AddCustomScript(`this is not go at all`)

	score, issues := f.Evaluate(goodRecord())
	assert.InDelta(t, 5.0/6, score, 1e-9)
	assert.Contains(t, issues, "custom_rule_error")
}
