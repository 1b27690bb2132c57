/*
 * @module service/dgm/direct_evaluator
 * @description 直接评估器：对生成集自身评估忠实度（约束通过率+基准相似度）与多样性（取值/成对差异/条件覆盖）
 * @architecture 领域服务层 - 纯计算
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 用全新过滤器重算约束通过率 -> 计算多样性分项 -> 等权汇总
 * @rules 空输入返回零分并置空标记，绝不panic；评估不修改样本
 * @dependencies math
 * @refs service/dgm/filter.go, service/dgm/benchmark.go
 */

package dgm

import (
	"sort"

	"gantry-dgm-service/service/models"
)

// diversityPairSampleCap 成对差异度计算的最大采样对数
const diversityPairSampleCap = 200

// DirectEvaluator 直接评估器
type DirectEvaluator struct {
	stats      *models.LearnedStatistics
	comparator *BenchmarkComparator
	targets    models.TargetDistribution
}

// NewDirectEvaluator 创建直接评估器
func NewDirectEvaluator(stats *models.LearnedStatistics, comparator *BenchmarkComparator, targets models.TargetDistribution) *DirectEvaluator {
	if targets == nil {
		targets = models.DefaultTargetDistribution()
	}
	return &DirectEvaluator{stats: stats, comparator: comparator, targets: targets}
}

// Evaluate 对生成集做直接评估
func (e *DirectEvaluator) Evaluate(records []*models.GantryRecord) models.DirectEvaluation {
	if len(records) == 0 {
		return models.DirectEvaluation{Empty: true}
	}

	passRate, issueCounts := e.constraintPassRate(records)
	benchmarkSim := 0.0
	if e.comparator != nil {
		benchmarkSim = e.comparator.Compare(records).Overall
	}
	faithfulness := (passRate + benchmarkSim) / 2

	diversity := (e.uniqueValueRatio(records) +
		e.pairwiseDissimilarity(records) +
		e.supportCoverage(records)) / 3

	return models.DirectEvaluation{
		Faithfulness:        faithfulness,
		Diversity:           diversity,
		Overall:             (faithfulness + diversity) / 2,
		ConstraintPassRate:  passRate,
		BenchmarkSimilarity: benchmarkSim,
		CommonIssues:        issueCounts,
	}
}

// constraintPassRate 用全新过滤器重算，不信任生成流程里缓存的质量分
func (e *DirectEvaluator) constraintPassRate(records []*models.GantryRecord) (float64, map[string]int) {
	filter := NewSampleFilter(e.stats, 0)
	passed := 0
	issueCounts := make(map[string]int)
	for _, r := range records {
		score, issues := filter.Evaluate(r)
		if score >= filter.Threshold() {
			passed++
		}
		for _, issue := range issues {
			issueCounts[issue]++
		}
	}
	return float64(passed) / float64(len(records)), issueCounts
}

// uniqueValueRatio 各字段去重取值数与样本数之比的均值
func (e *DirectEvaluator) uniqueValueRatio(records []*models.GantryRecord) float64 {
	fields := records[0].FieldNames()
	if len(fields) == 0 {
		return 0
	}
	total := 0.0
	for _, field := range fields {
		unique := make(map[string]bool)
		for _, r := range records {
			unique[r.GetString(field)] = true
		}
		total += float64(len(unique)) / float64(len(records))
	}
	return total / float64(len(fields))
}

// pairwiseDissimilarity 采样样本对之间字段取值不同的比例均值
func (e *DirectEvaluator) pairwiseDissimilarity(records []*models.GantryRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	fields := records[0].FieldNames()
	total, pairs := 0.0, 0
	// 固定步长遍历样本对，上限内保持确定性
	for i := 0; i < len(records)-1 && pairs < diversityPairSampleCap; i++ {
		for j := i + 1; j < len(records) && pairs < diversityPairSampleCap; j++ {
			diff := 0
			for _, field := range fields {
				if records[i].GetString(field) != records[j].GetString(field) {
					diff++
				}
			}
			total += float64(diff) / float64(len(fields))
			pairs++
		}
	}
	return total / float64(pairs)
}

// supportCoverage 目标分布中各维度类别被生成集覆盖的比例
func (e *DirectEvaluator) supportCoverage(records []*models.GantryRecord) float64 {
	observed := map[string]map[string]bool{
		DimensionVehicle:  {},
		DimensionTime:     {},
		DimensionScenario: {},
	}
	for _, r := range records {
		observed[DimensionVehicle][VehicleCategoryOf(r.GetString("vehicle_type"))] = true
		observed[DimensionTime][TimePeriodOfRecord(r)] = true
		observed[DimensionScenario][ScenarioOf(r)] = true
	}

	dims := make([]string, 0, len(e.targets))
	for dim := range e.targets {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	covered, wanted := 0, 0
	for _, dim := range dims {
		for category := range e.targets[dim] {
			wanted++
			if observed[dim][category] {
				covered++
			}
		}
	}
	if wanted == 0 {
		return 1
	}
	return float64(covered) / float64(wanted)
}
