/*
 * @module service/dgm/scheduler
 * @description 数据集级调度器：维护目标分布与实际分布计数，闭环产出下一个生成条件
 * @architecture 领域服务层 - 有状态（由编排器串行访问）
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow NextCondition产出条件 -> 样本经过滤后Update回写计数 -> 差距收敛
 * @rules 差距只基于已接受样本计算；尝试计数仅作重试簿记；计数不隐式清零；并列差距按类别固定顺序决胜
 * @dependencies math/rand
 * @refs service/dgm/generator.go
 */

package dgm

import (
	"math/rand"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// 分布维度名
const (
	DimensionVehicle  = "vehicle"
	DimensionTime     = "time"
	DimensionScenario = "scenario"
)

// dimensionOrders 各维度的类别固定顺序（差距并列时的决胜顺序）
var dimensionOrders = map[string][]string{
	DimensionVehicle:  meta.VehicleCategories,
	DimensionTime:     meta.TimePeriods,
	DimensionScenario: meta.Scenarios,
}

// DistributionStats 分布计数快照
type DistributionStats struct {
	Accepted      map[string]map[string]int `json:"accepted"`
	Attempts      map[string]map[string]int `json:"attempts"`
	TotalAccepted int                       `json:"total_accepted"`
	TotalAttempts int                       `json:"total_attempts"`
}

// Scheduler 数据集级调度器
type Scheduler struct {
	targets  models.TargetDistribution
	accepted map[string]map[string]int
	attempts map[string]map[string]int
	totalAccepted int
	totalAttempts int
	rng *rand.Rand
	now func() time.Time
}

// NewScheduler 创建调度器，targets为nil时使用缺省目标分布
func NewScheduler(targets models.TargetDistribution, seed int64) *Scheduler {
	if targets == nil {
		targets = models.DefaultTargetDistribution()
	}
	s := &Scheduler{
		targets:  targets,
		accepted: make(map[string]map[string]int),
		attempts: make(map[string]map[string]int),
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
	for _, dim := range []string{DimensionVehicle, DimensionTime, DimensionScenario} {
		s.accepted[dim] = make(map[string]int)
		s.attempts[dim] = make(map[string]int)
	}
	return s
}

// NextCondition 按各维度差距最大的类别产出下一个生成条件
func (s *Scheduler) NextCondition() models.GenerationCondition {
	vehicle := s.pickCategory(DimensionVehicle)
	period := s.pickCategory(DimensionTime)
	scenario := s.pickCategory(DimensionScenario)
	return models.GenerationCondition{
		VehicleCategory: vehicle,
		TimePeriod:      period,
		Scenario:        scenario,
		BaseTime:        s.baseTimeFor(period),
	}
}

// pickCategory 选择指定维度差距最大的类别；所有差距非正时按目标占比随机采样
func (s *Scheduler) pickCategory(dimension string) string {
	target := s.targets[dimension]
	order := dimensionOrders[dimension]
	if len(target) == 0 {
		if len(order) > 0 {
			return order[0]
		}
		return ""
	}

	best := ""
	bestGap := 0.0
	for _, category := range order {
		want, ok := target[category]
		if !ok {
			continue
		}
		observed := 0.0
		if s.totalAccepted > 0 {
			observed = float64(s.accepted[dimension][category]) / float64(s.totalAccepted)
		}
		// 零观测时差距即目标占比本身
		gap := want - observed
		if gap > bestGap {
			bestGap = gap
			best = category
		}
	}
	if best != "" {
		return best
	}
	return s.sampleProportional(target, order)
}

// sampleProportional 按目标占比随机采样类别
func (s *Scheduler) sampleProportional(target map[string]float64, order []string) string {
	total := 0.0
	for _, category := range order {
		if want, ok := target[category]; ok {
			total += want
		}
	}
	if total <= 0 {
		return order[0]
	}
	draw := s.rng.Float64() * total
	acc := 0.0
	for _, category := range order {
		want, ok := target[category]
		if !ok {
			continue
		}
		acc += want
		if draw < acc {
			return category
		}
	}
	// 浮点累加边界，落到最后一个有目标的类别
	for i := len(order) - 1; i >= 0; i-- {
		if _, ok := target[order[i]]; ok {
			return order[i]
		}
	}
	return order[0]
}

// baseTimeFor 为指定时段生成基准时间：在时段小时范围内随机取时刻
func (s *Scheduler) baseTimeFor(period string) time.Time {
	day := s.now().Truncate(24 * time.Hour)
	var hour int
	switch period {
	case meta.TimePeriodMorningRush:
		hour = meta.MorningRushStart + s.rng.Intn(meta.MorningRushEnd-meta.MorningRushStart)
	case meta.TimePeriodEveningRush:
		hour = meta.EveningRushStart + s.rng.Intn(meta.EveningRushEnd-meta.EveningRushStart)
	case meta.TimePeriodNight:
		// 23:00-05:00 跨午夜
		span := (24 - meta.NightStart) + meta.NightEnd
		hour = (meta.NightStart + s.rng.Intn(span)) % 24
	default:
		offPeakHours := offPeakHourSet()
		hour = offPeakHours[s.rng.Intn(len(offPeakHours))]
	}
	return day.Add(time.Duration(hour)*time.Hour +
		time.Duration(s.rng.Intn(60))*time.Minute +
		time.Duration(s.rng.Intn(60))*time.Second)
}

func offPeakHourSet() []int {
	hours := make([]int, 0, 12)
	for h := 0; h < 24; h++ {
		if TimePeriodOfHour(h) == meta.TimePeriodOffPeak {
			hours = append(hours, h)
		}
	}
	return hours
}

// Update 回写一次尝试的分布计数；accepted为真时同时更新接受计数
func (s *Scheduler) Update(r *models.GantryRecord, accepted bool) {
	vehicle := VehicleCategoryOf(r.GetString("vehicle_type"))
	period := TimePeriodOfRecord(r)
	scenario := ScenarioOf(r)

	s.attempts[DimensionVehicle][vehicle]++
	s.attempts[DimensionTime][period]++
	s.attempts[DimensionScenario][scenario]++
	s.totalAttempts++

	if accepted {
		s.accepted[DimensionVehicle][vehicle]++
		s.accepted[DimensionTime][period]++
		s.accepted[DimensionScenario][scenario]++
		s.totalAccepted++
	}
}

// Snapshot 导出当前分布计数的深拷贝
func (s *Scheduler) Snapshot() DistributionStats {
	snapshot := DistributionStats{
		Accepted:      make(map[string]map[string]int, len(s.accepted)),
		Attempts:      make(map[string]map[string]int, len(s.attempts)),
		TotalAccepted: s.totalAccepted,
		TotalAttempts: s.totalAttempts,
	}
	for dim, counts := range s.accepted {
		snapshot.Accepted[dim] = make(map[string]int, len(counts))
		for category, n := range counts {
			snapshot.Accepted[dim][category] = n
		}
	}
	for dim, counts := range s.attempts {
		snapshot.Attempts[dim] = make(map[string]int, len(counts))
		for category, n := range counts {
			snapshot.Attempts[dim][category] = n
		}
	}
	return snapshot
}

// Targets 目标分布（只读）
func (s *Scheduler) Targets() models.TargetDistribution {
	return s.targets
}
