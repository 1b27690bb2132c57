/*
 * @module service/dgm/classify_test
 * @description 维度归类测试：车型代码边界、小时时段边界、场景判定优先级
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 边界值必须逐一覆盖
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/classify.go
 */

package dgm

import (
	"testing"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/stretchr/testify/assert"
)

func TestVehicleCategoryOf(t *testing.T) {
	tests := []struct {
		vehicleType string
		want        string
	}{
		{"1", meta.VehicleCategoryPassenger},
		{"4", meta.VehicleCategoryPassenger},
		{"11", meta.VehicleCategoryTruck},
		{"16", meta.VehicleCategoryTruck},
		{"21", meta.VehicleCategorySpecial},
		{"26", meta.VehicleCategorySpecial},
		{"5", meta.VehicleCategorySpecial},
		{"99", meta.VehicleCategorySpecial},
		{"", meta.VehicleCategorySpecial},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VehicleCategoryOf(tt.vehicleType), "vehicle_type=%s", tt.vehicleType)
	}
}

func TestTimePeriodOfHour(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{7, meta.TimePeriodMorningRush},
		{8, meta.TimePeriodMorningRush},
		{9, meta.TimePeriodOffPeak},
		{17, meta.TimePeriodEveningRush},
		{18, meta.TimePeriodEveningRush},
		{19, meta.TimePeriodOffPeak},
		{23, meta.TimePeriodNight},
		{0, meta.TimePeriodNight},
		{4, meta.TimePeriodNight},
		{5, meta.TimePeriodOffPeak},
		{12, meta.TimePeriodOffPeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimePeriodOfHour(tt.hour), "hour=%d", tt.hour)
	}
}

func TestTimePeriodOfRecord(t *testing.T) {
	r := models.NewGantryRecord()
	r.Set("transaction_time", "2023-02-20T08:30:00")
	assert.Equal(t, meta.TimePeriodMorningRush, TimePeriodOfRecord(r))

	// 时间缺失或不可解析按平峰处理
	broken := models.NewGantryRecord()
	broken.Set("transaction_time", "not-a-time")
	assert.Equal(t, meta.TimePeriodOffPeak, TimePeriodOfRecord(broken))
	assert.Equal(t, meta.TimePeriodOffPeak, TimePeriodOfRecord(models.NewGantryRecord()))
}

func TestScenarioOf(t *testing.T) {
	normal := models.NewGantryRecord()
	normal.Set("vehicle_type", "1")
	normal.Set("entrance_time", "2023-02-20T06:00:00")
	normal.Set("pass_id", "0120230220000001")
	assert.Equal(t, meta.ScenarioNormal, ScenarioOf(normal))

	anomalous := models.NewGantryRecord()
	anomalous.Set("vehicle_type", "1")
	anomalous.Set("entrance_time", "")
	anomalous.Set("pass_id", "0120230220000001")
	assert.Equal(t, meta.ScenarioAnomalous, ScenarioOf(anomalous))

	// 超载判定优先于入口信息缺失
	overloaded := models.NewGantryRecord()
	overloaded.Set("vehicle_type", "13")
	overloaded.Set("axle_count", "3")
	overloaded.Set("total_weight", 26000)
	assert.Equal(t, meta.ScenarioOverloaded, ScenarioOf(overloaded))
}

func TestIsOverloaded(t *testing.T) {
	tests := []struct {
		name        string
		vehicleType string
		axleCount   string
		weight      int
		want        bool
	}{
		{"三轴货车超限", "13", "3", 25001, true},
		{"三轴货车临界不超限", "13", "3", 25000, false},
		{"二轴货车超限", "11", "2", 18500, true},
		{"客车不判超载", "1", "2", 99000, false},
		{"未知轴数按六轴上限", "16", "", 49001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := models.NewGantryRecord()
			r.Set("vehicle_type", tt.vehicleType)
			r.Set("axle_count", tt.axleCount)
			r.Set("total_weight", tt.weight)
			assert.Equal(t, tt.want, IsOverloaded(r))
		})
	}
}
