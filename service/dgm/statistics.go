/*
 * @module service/dgm/statistics
 * @description 从参考样本池学习数值字段统计特征（均值/标准差/极值）与费用里程相关系数
 * @architecture 领域服务层 - 纯计算
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 初始化时对训练池计算一次，结果只读供过滤器/重加权器/评估器共享
 * @rules 统计计算完成后不可变；样本数不足2的类别标准差记为0并跳过相关系数
 * @dependencies math
 * @refs service/models/generation_models.go
 */

package dgm

import (
	"math"

	"gantry-dgm-service/service/models"
)

// NumericFields 参与统计学习的数值字段
var NumericFields = []string{"pay_fee", "discount_fee", "fee_mileage", "total_weight"}

// LearnStatistics 从样本池学习统计信息，按车辆类别分组并附带整体统计
func LearnStatistics(pool []*models.GantryRecord) *models.LearnedStatistics {
	stats := &models.LearnedStatistics{
		ByCategory: make(map[string]models.CategoryStats),
	}

	byCategory := make(map[string][]*models.GantryRecord)
	for _, r := range pool {
		category := VehicleCategoryOf(r.GetString("vehicle_type"))
		byCategory[category] = append(byCategory[category], r)
	}
	for category, records := range byCategory {
		stats.ByCategory[category] = computeCategoryStats(records)
	}
	stats.Overall = computeCategoryStats(pool)
	return stats
}

func computeCategoryStats(records []*models.GantryRecord) models.CategoryStats {
	cs := models.CategoryStats{
		Fields:      make(map[string]models.FieldStats, len(NumericFields)),
		SampleCount: len(records),
	}
	for _, field := range NumericFields {
		values := make([]float64, 0, len(records))
		for _, r := range records {
			if r.Has(field) {
				values = append(values, float64(r.GetInt(field)))
			}
		}
		cs.Fields[field] = computeFieldStats(values)
	}
	cs.Correlation = feeMileageCorrelation(records)
	return cs
}

func computeFieldStats(values []float64) models.FieldStats {
	if len(values) == 0 {
		return models.FieldStats{}
	}
	min, max, sum := values[0], values[0], 0.0
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := 0.0
	if len(values) > 1 {
		std = math.Sqrt(variance / float64(len(values)))
	}
	return models.FieldStats{Mean: mean, Std: std, Min: min, Max: max}
}

// feeMileageCorrelation 费用与里程的皮尔逊相关系数
func feeMileageCorrelation(records []*models.GantryRecord) float64 {
	fees := make([]float64, 0, len(records))
	mileages := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Has("pay_fee") && r.Has("fee_mileage") {
			fees = append(fees, float64(r.GetInt("pay_fee")))
			mileages = append(mileages, float64(r.GetInt("fee_mileage")))
		}
	}
	return pearson(fees, mileages)
}

func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	meanX, meanY := mean(xs), mean(ys)
	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
