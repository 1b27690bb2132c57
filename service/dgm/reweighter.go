/*
 * @module service/dgm/reweighter
 * @description 重加权器：按质量分数与统计偏离程度为样本赋权并分层，产出按权重降序的样本序列
 * @architecture 领域服务层 - 纯计算
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 逐样本计算权重 -> 按阈值分层 -> 稳定降序排序
 * @rules 权重非负不归一化，1.0为中性；分层边界权重归入较低层；排序对同权重样本保持生成顺序
 * @dependencies math, sort
 * @refs service/dgm/statistics.go, service/meta/constants.go
 */

package dgm

import (
	"math"
	"sort"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// Reweighter 样本重加权器
type Reweighter struct {
	stats *models.LearnedStatistics
}

// NewReweighter 创建重加权器
func NewReweighter(stats *models.LearnedStatistics) *Reweighter {
	return &Reweighter{stats: stats}
}

// Weight 单样本权重 = 质量分数 × 统计贴合度 × 2。
// 统计贴合度取各数值字段 1/(1+|z|) 的均值；质量分与贴合度都在0.5附近时权重接近中性1.0。
func (w *Reweighter) Weight(r *models.GantryRecord) float64 {
	fit := w.statisticalFit(r)
	weight := r.Meta.QualityScore * fit * 2
	if weight < 0 {
		weight = 0
	}
	return weight
}

// statisticalFit 按样本所属车辆类别的学习统计计算贴合度
func (w *Reweighter) statisticalFit(r *models.GantryRecord) float64 {
	if w.stats == nil {
		return 0.5
	}
	cs, ok := w.stats.ByCategory[VehicleCategoryOf(r.GetString("vehicle_type"))]
	if !ok {
		cs = w.stats.Overall
	}

	total, counted := 0.0, 0
	for _, field := range NumericFields {
		fs, ok := cs.Fields[field]
		if !ok || !r.Has(field) {
			continue
		}
		value := float64(r.GetInt(field))
		z := 0.0
		if fs.Std > 0 {
			z = math.Abs(value-fs.Mean) / fs.Std
		} else if value != fs.Mean {
			z = 1
		}
		total += 1 / (1 + z)
		counted++
	}
	if counted == 0 {
		return 0.5
	}
	return total / float64(counted)
}

// Reweight 为全部样本赋权并分层，返回按权重稳定降序的序列与质量分层
func (w *Reweighter) Reweight(records []*models.GantryRecord) ([]*models.GantryRecord, models.QualityTiers) {
	var tiers models.QualityTiers
	for _, r := range records {
		weight := w.Weight(r)
		r.Meta.QualityWeight = weight
		switch {
		case weight > meta.TierHighThreshold:
			tiers.High = append(tiers.High, r)
		case weight < meta.TierLowThreshold:
			tiers.Low = append(tiers.Low, r)
		default:
			// 边界值1.2/0.8均归入中层
			tiers.Medium = append(tiers.Medium, r)
		}
	}

	weighted := make([]*models.GantryRecord, len(records))
	copy(weighted, records)
	sort.SliceStable(weighted, func(i, j int) bool {
		return weighted[i].Meta.QualityWeight > weighted[j].Meta.QualityWeight
	})
	return weighted, tiers
}
