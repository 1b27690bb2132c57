/*
 * @module service/dgm/enhancer
 * @description 标签增强器：派生车辆类别/时段/场景标签，并修复时序倒置与门架路段不一致
 * @architecture 领域服务层 - 记录修复
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 派生标签 -> 时序修复 -> 拓扑修复 -> 每次修复追加修正日志
 * @rules Enhance对任意输入都返回记录（全函数）；修复绝不静默，必须留痕；身份字段不修改
 * @dependencies time
 * @refs service/dgm/classify.go, service/meta/constants.go
 */

package dgm

import (
	"fmt"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// 派生标签字段名
const (
	LabelVehicleCategory = "vehicle_category"
	LabelTimePeriod      = "time_period"
	LabelScenario        = "scenario"
)

// LabelEnhancer 标签增强器
type LabelEnhancer struct{}

// NewLabelEnhancer 创建标签增强器
func NewLabelEnhancer() *LabelEnhancer {
	return &LabelEnhancer{}
}

// Enhance 派生标签并修复可修复的不一致，返回同一条记录
func (e *LabelEnhancer) Enhance(r *models.GantryRecord) *models.GantryRecord {
	e.repairTemporal(r)
	e.repairTopology(r)

	// 标签在修复之后派生，保证标签口径与修复后的字段一致
	r.Set(LabelVehicleCategory, VehicleCategoryOf(r.GetString("vehicle_type")))
	r.Set(LabelTimePeriod, TimePeriodOfRecord(r))
	r.Set(LabelScenario, ScenarioOf(r))
	return r
}

// repairTemporal 入口时间晚于交易时间或行程时长越界时，把入口时间收回到合理区间
func (e *LabelEnhancer) repairTemporal(r *models.GantryRecord) {
	transaction, hasTx := r.GetTime("transaction_time")
	entrance, hasEntrance := r.GetTime("entrance_time")
	if !hasTx || !hasEntrance {
		return
	}

	travelHours := transaction.Sub(entrance).Hours()
	if travelHours >= meta.MinTravelHours && travelHours <= meta.MaxTravelHours {
		return
	}

	// 钳位到区间中点，保留修复前的值
	old := r.GetString("entrance_time")
	clampHours := (meta.MinTravelHours + meta.MaxTravelHours) / 2
	repaired := transaction.Add(-time.Duration(clampHours * float64(time.Hour))).Format("2006-01-02T15:04:05")
	r.Set("entrance_time", repaired)
	r.AppendCorrection("entrance_time", old, repaired,
		fmt.Sprintf("行程时长%.1fh越界，钳位到合理区间", travelHours))
}

// repairTopology 门架与路段映射不一致时，以门架为准改写路段信息
func (e *LabelEnhancer) repairTopology(r *models.GantryRecord) {
	gantryID := r.GetString("gantry_id")
	sectionID, ok := meta.GantryToSection[gantryID]
	if !ok {
		return
	}
	if old := r.GetString("section_id"); old != sectionID {
		r.Set("section_id", sectionID)
		r.AppendCorrection("section_id", old, sectionID, "门架与路段映射不一致，以门架为准改写")
	}
	sectionName := meta.SectionNameByID[sectionID]
	if old := r.GetString("section_name"); sectionName != "" && old != sectionName {
		r.Set("section_name", sectionName)
		r.AppendCorrection("section_name", old, sectionName, "路段名称与路段ID不一致，以路段ID为准改写")
	}
}
