/*
 * @module service/dgm/indirect_evaluator
 * @description 间接评估器：基准相似度 + 四个自包含的下游代理任务（异常检测/费用预测/车型一致性/时间一致性）
 * @architecture 领域服务层 - 纯计算
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 计算基准相似度 -> 逐代理任务打分 -> 等权汇总
 * @rules 代理任务全部自包含，不依赖外部模型；空输入返回零分并置空标记
 * @dependencies math
 * @refs service/dgm/benchmark.go, service/dgm/classify.go
 */

package dgm

import (
	"math"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// 代理任务名
const (
	TaskAnomalyDetection   = "anomaly_detection"
	TaskFeePrediction      = "fee_prediction"
	TaskVehicleConsistency = "vehicle_classification"
	TaskTimeConsistency    = "time_consistency"
)

// IndirectEvaluator 间接评估器
type IndirectEvaluator struct {
	comparator *BenchmarkComparator
}

// NewIndirectEvaluator 创建间接评估器
func NewIndirectEvaluator(comparator *BenchmarkComparator) *IndirectEvaluator {
	return &IndirectEvaluator{comparator: comparator}
}

// Evaluate 对生成集做间接评估
func (e *IndirectEvaluator) Evaluate(records []*models.GantryRecord) models.IndirectEvaluation {
	if len(records) == 0 {
		return models.IndirectEvaluation{Empty: true}
	}

	benchmarkSim := 0.0
	if e.comparator != nil {
		benchmarkSim = e.comparator.Compare(records).Overall
	}

	open := map[string]float64{
		TaskAnomalyDetection:   e.anomalyDetection(records),
		TaskFeePrediction:      e.feePrediction(records),
		TaskVehicleConsistency: e.vehicleConsistency(records),
		TaskTimeConsistency:    e.timeConsistency(records),
	}
	openMean := 0.0
	for _, score := range open {
		openMean += score
	}
	openMean /= float64(len(open))

	return models.IndirectEvaluation{
		BenchmarkSimilarity: benchmarkSim,
		OpenEvaluation:      open,
		Overall:             (benchmarkSim + openMean) / 2,
	}
}

// anomalyDetection 规则超载检测器相对场景标签的精确率
func (e *IndirectEvaluator) anomalyDetection(records []*models.GantryRecord) float64 {
	detected, correct := 0, 0
	for _, r := range records {
		if IsOverloaded(r) {
			detected++
			if ScenarioOf(r) == meta.ScenarioOverloaded {
				correct++
			}
		}
	}
	if detected == 0 {
		// 没有检出样本时看漏报：存在超载标签却检不出来才算失败
		for _, r := range records {
			if r.GetString(LabelScenario) == meta.ScenarioOverloaded {
				return 0
			}
		}
		return 1
	}
	return float64(correct) / float64(detected)
}

// feePrediction 闭式费用估计器的 1 - 归一化MAE
func (e *IndirectEvaluator) feePrediction(records []*models.GantryRecord) float64 {
	totalErr, totalFee := 0.0, 0.0
	for _, r := range records {
		mileage := r.GetInt("fee_mileage")
		payFee := r.GetInt("pay_fee")
		if mileage <= 0 || payFee <= 0 {
			continue
		}
		predicted := meta.ExpectedFee(mileage, r.GetString("vehicle_type"))
		totalErr += math.Abs(float64(payFee - predicted))
		totalFee += float64(payFee)
	}
	if totalFee == 0 {
		return 0
	}
	score := 1 - totalErr/totalFee
	if score < 0 {
		score = 0
	}
	return score
}

// vehicleConsistency 车型代码、轴数、重量区间三者自洽的样本比例
func (e *IndirectEvaluator) vehicleConsistency(records []*models.GantryRecord) float64 {
	consistent := 0
	for _, r := range records {
		vehicleType := r.GetString("vehicle_type")
		expected, known := meta.ExpectedAxles[vehicleType]
		if !known || r.GetString("axle_count") != expected {
			continue
		}
		weight := r.GetInt("total_weight")
		if VehicleCategoryOf(vehicleType) == meta.VehicleCategoryPassenger {
			if weight < meta.PassengerWeightMin || weight > meta.PassengerWeightMax {
				continue
			}
		}
		consistent++
	}
	return float64(consistent) / float64(len(records))
}

// timeConsistency 时序有效（入口早于交易且时长合理）的样本比例，无入口信息的异常样本不计入分母
func (e *IndirectEvaluator) timeConsistency(records []*models.GantryRecord) float64 {
	checked, valid := 0, 0
	for _, r := range records {
		transaction, hasTx := r.GetTime("transaction_time")
		entrance, hasEntrance := r.GetTime("entrance_time")
		if !hasTx || !hasEntrance {
			continue
		}
		checked++
		if entrance.Before(transaction) {
			hours := transaction.Sub(entrance).Hours()
			if hours >= meta.MinTravelHours && hours <= meta.MaxTravelHours {
				valid++
			}
		}
	}
	if checked == 0 {
		return 0
	}
	return float64(valid) / float64(checked)
}
