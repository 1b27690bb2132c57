/*
 * @module service/dgm/classify
 * @description 记录维度归类：车型代码->车辆类别、小时->时段、记录->场景的固定边界判定
 * @architecture 领域服务层 - 纯函数
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 无状态
 * @rules 归类边界固定，增强器与调度器必须使用同一套判定，避免口径漂移
 * @dependencies github.com/spf13/cast
 * @refs service/meta/constants.go
 */

package dgm

import (
	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/spf13/cast"
)

// VehicleCategoryOf 由车型代码判定车辆类别，未知代码归为special
func VehicleCategoryOf(vehicleType string) string {
	code := cast.ToInt(vehicleType)
	switch {
	case code >= meta.PassengerTypeMin && code <= meta.PassengerTypeMax:
		return meta.VehicleCategoryPassenger
	case code >= meta.TruckTypeMin && code <= meta.TruckTypeMax:
		return meta.VehicleCategoryTruck
	default:
		return meta.VehicleCategorySpecial
	}
}

// TimePeriodOfHour 由小时判定时段
func TimePeriodOfHour(hour int) string {
	switch {
	case hour >= meta.MorningRushStart && hour < meta.MorningRushEnd:
		return meta.TimePeriodMorningRush
	case hour >= meta.EveningRushStart && hour < meta.EveningRushEnd:
		return meta.TimePeriodEveningRush
	case hour >= meta.NightStart || hour < meta.NightEnd:
		return meta.TimePeriodNight
	default:
		return meta.TimePeriodOffPeak
	}
}

// TimePeriodOfRecord 由记录的交易时间判定时段，时间缺失或不可解析按平峰处理
func TimePeriodOfRecord(r *models.GantryRecord) string {
	if t, ok := r.GetTime("transaction_time"); ok {
		return TimePeriodOfHour(t.Hour())
	}
	return meta.TimePeriodOffPeak
}

// ScenarioOf 由记录内容判定场景：超限重为overloaded，入口信息缺失为anomalous，否则normal
func ScenarioOf(r *models.GantryRecord) string {
	if IsOverloaded(r) {
		return meta.ScenarioOverloaded
	}
	if !r.Has("entrance_time") || !r.Has("pass_id") {
		return meta.ScenarioAnomalous
	}
	return meta.ScenarioNormal
}

// IsOverloaded 货车总重超过其轴数限重即判定为超载
func IsOverloaded(r *models.GantryRecord) bool {
	if VehicleCategoryOf(r.GetString("vehicle_type")) != meta.VehicleCategoryTruck {
		return false
	}
	weight := r.GetInt("total_weight")
	limit := meta.AxleWeightLimit(r.GetString("axle_count"))
	return weight > limit
}
