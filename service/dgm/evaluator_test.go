/*
 * @module service/dgm/evaluator_test
 * @description 直接/间接评估器测试：自洽集合高分、劣化集合降分、空输入显式标记与代理任务口径
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 空输入返回零分并置空标记，不得panic
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/direct_evaluator.go, service/dgm/indirect_evaluator.go
 */

package dgm

import (
	"testing"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationFixture(t *testing.T) ([]*models.GantryRecord, *models.LearnedStatistics, *BenchmarkComparator) {
	t.Helper()
	pool := benchmarkPool(10)
	enhancer := NewLabelEnhancer()
	for _, r := range pool {
		enhancer.Enhance(r)
	}
	return pool, LearnStatistics(pool), NewBenchmarkComparator(pool)
}

func TestDirectEvaluateSelfConsistentSet(t *testing.T) {
	records, stats, comparator := evaluationFixture(t)
	e := NewDirectEvaluator(stats, comparator, nil)

	result := e.Evaluate(records)
	require.False(t, result.Empty)
	assert.InDelta(t, 1.0, result.ConstraintPassRate, 1e-9)
	assert.InDelta(t, 1.0, result.BenchmarkSimilarity, 1e-6)
	assert.InDelta(t, 1.0, result.Faithfulness, 1e-6)
	assert.Greater(t, result.Diversity, 0.0)
	assert.LessOrEqual(t, result.Diversity, 1.0)
	assert.InDelta(t, (result.Faithfulness+result.Diversity)/2, result.Overall, 1e-9)
	assert.Empty(t, result.CommonIssues)
}

func TestDirectEvaluateCountsCommonIssues(t *testing.T) {
	records, stats, comparator := evaluationFixture(t)
	for _, r := range records[:2] {
		r.Set("pay_fee", -1)
		tx, _ := r.GetTime("transaction_time")
		r.Set("entrance_time", tx.Add(time.Hour).Format("2006-01-02T15:04:05"))
	}

	e := NewDirectEvaluator(stats, comparator, nil)
	result := e.Evaluate(records)
	assert.Equal(t, 2, result.CommonIssues["negative_fee"])
	assert.Equal(t, 2, result.CommonIssues["entrance_after_transaction"])
	assert.InDelta(t, 0.8, result.ConstraintPassRate, 1e-9)
	assert.Less(t, result.Faithfulness, 1.0)
}

func TestDirectEvaluateEmpty(t *testing.T) {
	_, stats, comparator := evaluationFixture(t)
	e := NewDirectEvaluator(stats, comparator, nil)

	result := e.Evaluate(nil)
	assert.True(t, result.Empty)
	assert.Zero(t, result.Overall)
}

func TestDirectEvaluateDiversityDegrades(t *testing.T) {
	records, stats, comparator := evaluationFixture(t)
	e := NewDirectEvaluator(stats, comparator, nil)
	varied := e.Evaluate(records)

	// 同一条记录复制十份：多样性显著低于真实集合
	clones := make([]*models.GantryRecord, 10)
	for i := range clones {
		clones[i] = records[0].Clone()
	}
	uniform := e.Evaluate(clones)
	assert.Less(t, uniform.Diversity, varied.Diversity)
}

func TestIndirectEvaluateSelfConsistentSet(t *testing.T) {
	records, _, comparator := evaluationFixture(t)
	e := NewIndirectEvaluator(comparator)

	result := e.Evaluate(records)
	require.False(t, result.Empty)
	assert.InDelta(t, 1.0, result.OpenEvaluation[TaskAnomalyDetection], 1e-9)
	assert.InDelta(t, 1.0, result.OpenEvaluation[TaskFeePrediction], 1e-9)
	assert.InDelta(t, 1.0, result.OpenEvaluation[TaskVehicleConsistency], 1e-9)
	assert.InDelta(t, 1.0, result.OpenEvaluation[TaskTimeConsistency], 1e-9)
	assert.InDelta(t, 1.0, result.Overall, 1e-6)
}

func TestIndirectEvaluateProxyTasksDetectDefects(t *testing.T) {
	records, _, comparator := evaluationFixture(t)

	// 标成超载却检不出：异常检测代理任务记零分
	records[0].Set(LabelScenario, meta.ScenarioOverloaded)
	e := NewIndirectEvaluator(comparator)
	result := e.Evaluate(records)
	assert.InDelta(t, 0.0, result.OpenEvaluation[TaskAnomalyDetection], 1e-9)

	// 费用偏离闭式估计：费用预测分数下降
	records[0].Set(LabelScenario, meta.ScenarioNormal)
	for _, r := range records {
		r.Set("pay_fee", r.GetInt("pay_fee")*3)
	}
	result = e.Evaluate(records)
	assert.Less(t, result.OpenEvaluation[TaskFeePrediction], 0.5)
}

func TestIndirectEvaluateTimeConsistency(t *testing.T) {
	records, _, comparator := evaluationFixture(t)
	records[0].Set("entrance_time", records[0].GetString("transaction_time")) // 时长为0

	e := NewIndirectEvaluator(comparator)
	result := e.Evaluate(records)
	assert.InDelta(t, 0.9, result.OpenEvaluation[TaskTimeConsistency], 1e-9)
}

func TestIndirectEvaluateEmpty(t *testing.T) {
	_, _, comparator := evaluationFixture(t)
	e := NewIndirectEvaluator(comparator)

	result := e.Evaluate(nil)
	assert.True(t, result.Empty)
	assert.Zero(t, result.Overall)

	// 比较器缺失时基准相似度按0计，代理任务照常执行
	bare := NewIndirectEvaluator(nil)
	records := benchmarkPool(4)
	result = bare.Evaluate(records)
	assert.Zero(t, result.BenchmarkSimilarity)
	assert.Greater(t, result.Overall, 0.0)
}
