/*
 * @module service/dgm/scheduler_test
 * @description 调度器测试：零观测差距、接受口径的差距收敛、比例采样兜底、时段基准时间与计数快照
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 差距计算只认已接受样本
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/scheduler.go
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

// schedulerRecord 构造一条指定类别归属的记录供Update回写
func schedulerRecord(vehicleType string, hour int) *models.GantryRecord {
	r := models.NewGantryRecord()
	r.Set("vehicle_type", vehicleType)
	r.Set("pass_id", "01x")
	tx := time.Date(2023, 2, 20, hour, 0, 0, 0, time.UTC)
	r.Set("transaction_time", tx.Format("2006-01-02T15:04:05"))
	r.Set("entrance_time", tx.Add(-2*time.Hour).Format("2006-01-02T15:04:05"))
	return r
}

func TestSchedulerZeroObservationPicksLargestTarget(t *testing.T) {
	targets := models.TargetDistribution{
		DimensionVehicle: {"truck": 0.7, "passenger": 0.3},
	}
	s := NewScheduler(targets, 1)

	// 零观测时差距即目标占比本身，取最大者
	cond := s.NextCondition()
	assert.Equal(t, meta.VehicleCategoryTruck, cond.VehicleCategory)
}

func TestSchedulerGapUsesAcceptedOnly(t *testing.T) {
	targets := models.TargetDistribution{
		DimensionVehicle: {"truck": 0.7, "passenger": 0.3},
	}
	s := NewScheduler(targets, 1)

	// 拒绝的货车样本不改变接受口径的差距，下一条仍是货车
	s.Update(schedulerRecord("13", 12), false)
	assert.Equal(t, meta.VehicleCategoryTruck, s.NextCondition().VehicleCategory)

	// 接受一条货车后货车占比1.0超出目标，轮到客车
	s.Update(schedulerRecord("13", 12), true)
	assert.Equal(t, meta.VehicleCategoryPassenger, s.NextCondition().VehicleCategory)
}

func TestSchedulerProportionalFallback(t *testing.T) {
	targets := models.TargetDistribution{
		DimensionVehicle: {"truck": 0.5, "passenger": 0.5},
	}
	s := NewScheduler(targets, 1)
	s.Update(schedulerRecord("13", 12), true)
	s.Update(schedulerRecord("1", 12), true)

	// 所有差距非正，按目标占比随机采样，结果仍在目标类别内
	for i := 0; i < 10; i++ {
		category := s.NextCondition().VehicleCategory
		assert.Contains(t, []string{meta.VehicleCategoryTruck, meta.VehicleCategoryPassenger}, category)
	}
}

func TestSchedulerDefaultTargets(t *testing.T) {
	s := NewScheduler(nil, 1)
	assert.Equal(t, models.DefaultTargetDistribution(), s.Targets())

	cond := s.NextCondition()
	assert.Equal(t, meta.VehicleCategoryTruck, cond.VehicleCategory)
	assert.Equal(t, meta.TimePeriodOffPeak, cond.TimePeriod)
	assert.Equal(t, meta.ScenarioNormal, cond.Scenario)
}

func TestSchedulerBaseTimeMatchesPeriod(t *testing.T) {
	s := NewScheduler(nil, 1)
	for _, period := range meta.TimePeriods {
		for i := 0; i < 20; i++ {
			base := s.baseTimeFor(period)
			assert.Equal(t, period, TimePeriodOfHour(base.Hour()),
				"period=%s hour=%d", period, base.Hour())
		}
	}
}

func TestSchedulerSnapshot(t *testing.T) {
	s := NewScheduler(nil, 1)
	s.Update(schedulerRecord("13", 8), true)
	s.Update(schedulerRecord("1", 12), false)

	snapshot := s.Snapshot()
	assert.Equal(t, 1, snapshot.TotalAccepted)
	assert.Equal(t, 2, snapshot.TotalAttempts)
	assert.Equal(t, 1, snapshot.Accepted[DimensionVehicle][meta.VehicleCategoryTruck])
	assert.Equal(t, 1, snapshot.Attempts[DimensionVehicle][meta.VehicleCategoryPassenger])
	assert.Equal(t, 1, snapshot.Accepted[DimensionTime][meta.TimePeriodMorningRush])
	assert.Equal(t, 1, snapshot.Accepted[DimensionScenario][meta.ScenarioNormal])

	// 快照是深拷贝，修改不影响调度器内部计数
	snapshot.Accepted[DimensionVehicle][meta.VehicleCategoryTruck] = 99
	require.Equal(t, 1, s.Snapshot().Accepted[DimensionVehicle][meta.VehicleCategoryTruck])
}
