/*
 * @module service/dgm/demonstrations
 * @description 示例选择器：按生成条件相似度从参考样本池挑选少样本示例，支持多候选一致性投票
 * @architecture 领域服务层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 初始化时注入只读样本池与随机种子 -> 每次选择独立打分排序
 * @rules 相同分数的并列决胜由可播种随机数决定，固定种子下选择结果可复现；样本池只读
 * @dependencies math/rand
 * @refs service/dgm/decomposer.go
 */

package dgm

import (
	"math/rand"
	"sort"

	"gantry-dgm-service/service/models"
)

// DemonstrationSelector 少样本示例选择器
type DemonstrationSelector struct {
	pool []*models.GantryRecord
	rng  *rand.Rand
}

// NewDemonstrationSelector 创建示例选择器，seed固定时选择结果可复现
func NewDemonstrationSelector(pool []*models.GantryRecord, seed int64) *DemonstrationSelector {
	return &DemonstrationSelector{
		pool: pool,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// similarity 记录与生成条件的相似度：车辆类别、时段、场景三个维度各计1分
func similarity(r *models.GantryRecord, cond models.GenerationCondition) int {
	score := 0
	if VehicleCategoryOf(r.GetString("vehicle_type")) == cond.VehicleCategory {
		score++
	}
	if TimePeriodOfRecord(r) == cond.TimePeriod {
		score++
	}
	if ScenarioOf(r) == cond.Scenario {
		score++
	}
	return score
}

// Select 选出与条件最相似的k条示例，分数并列时由随机数决胜
func (s *DemonstrationSelector) Select(cond models.GenerationCondition, k int) []*models.GantryRecord {
	if len(s.pool) == 0 || k <= 0 {
		return nil
	}
	type scored struct {
		record *models.GantryRecord
		score  int
		tie    float64
	}
	candidates := make([]scored, len(s.pool))
	for i, r := range s.pool {
		candidates[i] = scored{record: r, score: similarity(r, cond), tie: s.rng.Float64()}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tie < candidates[j].tie
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	selected := make([]*models.GantryRecord, k)
	for i := 0; i < k; i++ {
		selected[i] = candidates[i].record
	}
	return selected
}

// SelectMultiCandidate 独立选择runs轮后做一致性投票，返回出现次数最多的k条示例。
// 票数并列时先被选中的示例优先。
func (s *DemonstrationSelector) SelectMultiCandidate(cond models.GenerationCondition, k, runs int) []*models.GantryRecord {
	if runs <= 1 {
		return s.Select(cond, k)
	}

	votes := make(map[string]int)
	firstSeen := make(map[string]int)
	byID := make(map[string]*models.GantryRecord)
	seen := 0
	for run := 0; run < runs; run++ {
		for _, r := range s.Select(cond, k) {
			id := r.ID()
			votes[id]++
			if _, ok := firstSeen[id]; !ok {
				firstSeen[id] = seen
				byID[id] = r
				seen++
			}
		}
	}

	ids := make([]string, 0, len(votes))
	for id := range votes {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if votes[ids[i]] != votes[ids[j]] {
			return votes[ids[i]] > votes[ids[j]]
		}
		return firstSeen[ids[i]] < firstSeen[ids[j]]
	})
	if k > len(ids) {
		k = len(ids)
	}
	selected := make([]*models.GantryRecord, k)
	for i := 0; i < k; i++ {
		selected[i] = byID[ids[i]]
	}
	return selected
}
