/*
 * @module service/dgm/benchmark
 * @description 基准相似度计算：类别分布KL、数值统计偏差、小时直方图、费用里程相关性四个分项的均值
 * @architecture 领域服务层 - 纯计算
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 对生成集与基准池各自统计 -> 分项计算相似度 -> 取均值
 * @rules 任一侧为空返回零分并置空标记；各分项均在[0,1]；基准池只读
 * @dependencies math
 * @refs service/dgm/direct_evaluator.go, service/dgm/indirect_evaluator.go
 */

package dgm

import (
	"math"

	"gantry-dgm-service/service/models"
)

// categoricalFields 参与分布相似度计算的类别字段
var categoricalFields = []string{"vehicle_type", "media_type", "gantry_id", "axle_count"}

// statisticalSimilarityFields 参与统计相似度计算的数值字段
var statisticalSimilarityFields = []string{"pay_fee", "fee_mileage", "total_weight"}

// klSmoothing KL散度计算的拉普拉斯平滑量
const klSmoothing = 1e-6

// BenchmarkComparator 基准相似度计算器
type BenchmarkComparator struct {
	benchmark      []*models.GantryRecord
	benchmarkStats *models.LearnedStatistics
}

// NewBenchmarkComparator 创建基准相似度计算器，统计在创建时对基准池计算一次
func NewBenchmarkComparator(benchmark []*models.GantryRecord) *BenchmarkComparator {
	return &BenchmarkComparator{
		benchmark:      benchmark,
		benchmarkStats: LearnStatistics(benchmark),
	}
}

// Compare 计算生成集与基准池的相似度
func (c *BenchmarkComparator) Compare(generated []*models.GantryRecord) models.BenchmarkSimilarity {
	if len(generated) == 0 || len(c.benchmark) == 0 {
		return models.BenchmarkSimilarity{Empty: true}
	}

	similarity := models.BenchmarkSimilarity{
		Distribution:  c.distributionSimilarity(generated),
		Statistical:   c.statisticalSimilarity(generated),
		HourlyPattern: c.hourlySimilarity(generated),
		Correlation:   c.correlationSimilarity(generated),
	}
	similarity.Overall = (similarity.Distribution + similarity.Statistical +
		similarity.HourlyPattern + similarity.Correlation) / 4
	return similarity
}

// distributionSimilarity 各类别字段分布的 1/(1+KL) 均值
func (c *BenchmarkComparator) distributionSimilarity(generated []*models.GantryRecord) float64 {
	total := 0.0
	for _, field := range categoricalFields {
		p := categoricalDistribution(generated, field)
		q := categoricalDistribution(c.benchmark, field)
		total += 1 / (1 + klDivergence(p, q))
	}
	return total / float64(len(categoricalFields))
}

func categoricalDistribution(records []*models.GantryRecord, field string) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, r := range records {
		if r.Has(field) {
			counts[r.GetString(field)]++
			total++
		}
	}
	dist := make(map[string]float64, len(counts))
	if total == 0 {
		return dist
	}
	for value, n := range counts {
		dist[value] = float64(n) / float64(total)
	}
	return dist
}

// klDivergence KL(p||q)，两侧类别并集上做平滑
func klDivergence(p, q map[string]float64) float64 {
	keys := make(map[string]bool, len(p)+len(q))
	for k := range p {
		keys[k] = true
	}
	for k := range q {
		keys[k] = true
	}
	if len(keys) == 0 {
		return 0
	}
	kl := 0.0
	for k := range keys {
		pk := p[k] + klSmoothing
		qk := q[k] + klSmoothing
		kl += pk * math.Log(pk/qk)
	}
	if kl < 0 {
		kl = 0
	}
	return kl
}

// statisticalSimilarity 数值字段均值/标准差相对基准的贴合度，负值截断为0
func (c *BenchmarkComparator) statisticalSimilarity(generated []*models.GantryRecord) float64 {
	generatedStats := LearnStatistics(generated)
	total, counted := 0.0, 0
	for _, field := range statisticalSimilarityFields {
		ref, ok := c.benchmarkStats.Overall.Fields[field]
		if !ok || ref.Std == 0 {
			continue
		}
		gen, ok := generatedStats.Overall.Fields[field]
		if !ok {
			continue
		}
		meanSim := 1 - math.Abs(gen.Mean-ref.Mean)/ref.Std
		stdSim := 1 - math.Abs(gen.Std-ref.Std)/ref.Std
		if meanSim < 0 {
			meanSim = 0
		}
		if stdSim < 0 {
			stdSim = 0
		}
		total += (meanSim + stdSim) / 2
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// hourlySimilarity 交易时间小时直方图的重叠度（histogram intersection）
func (c *BenchmarkComparator) hourlySimilarity(generated []*models.GantryRecord) float64 {
	p := hourlyHistogram(generated)
	q := hourlyHistogram(c.benchmark)
	overlap := 0.0
	for h := 0; h < 24; h++ {
		overlap += math.Min(p[h], q[h])
	}
	return overlap
}

func hourlyHistogram(records []*models.GantryRecord) [24]float64 {
	var hist [24]float64
	total := 0
	for _, r := range records {
		if t, ok := r.GetTime("transaction_time"); ok {
			hist[t.Hour()]++
			total++
		}
	}
	if total > 0 {
		for h := 0; h < 24; h++ {
			hist[h] /= float64(total)
		}
	}
	return hist
}

// correlationSimilarity 各车辆类别费用里程相关系数的 1/(1+|Δcorr|) 均值
func (c *BenchmarkComparator) correlationSimilarity(generated []*models.GantryRecord) float64 {
	generatedStats := LearnStatistics(generated)
	total, counted := 0.0, 0
	for category, ref := range c.benchmarkStats.ByCategory {
		gen, ok := generatedStats.ByCategory[category]
		if !ok {
			continue
		}
		total += 1 / (1 + math.Abs(gen.Correlation-ref.Correlation))
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}
