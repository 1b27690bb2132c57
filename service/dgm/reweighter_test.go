/*
 * @module service/dgm/reweighter_test
 * @description 重加权器测试：权重计算、边界值分层归属、稳定降序排序
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 边界权重1.2/0.8归入中层；同权重保持生成顺序
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/reweighter.go
 */

package dgm

import (
	"testing"

	"gantry-dgm-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightedRecord(id string, qualityScore float64) *models.GantryRecord {
	r := models.NewGantryRecord()
	r.Set("gantry_transaction_id", id)
	r.Set("vehicle_type", "1")
	r.Meta.QualityScore = qualityScore
	return r
}

func TestWeightNeutralWithoutStats(t *testing.T) {
	// 无统计时贴合度按0.5处理，权重 = 质量分 × 0.5 × 2 = 质量分
	w := NewReweighter(nil)
	assert.InDelta(t, 1.0, w.Weight(weightedRecord("a", 1.0)), 1e-9)
	assert.InDelta(t, 0.5, w.Weight(weightedRecord("b", 0.5)), 1e-9)
}

func TestWeightWithPerfectFit(t *testing.T) {
	r := weightedRecord("a", 1.0)
	r.Set("pay_fee", 900)
	r.Set("discount_fee", 45)
	r.Set("fee_mileage", 20000)
	r.Set("total_weight", 2500)

	// 两条相同记录学出的统计：各字段标准差为0且取值等于均值，贴合度为1
	stats := LearnStatistics([]*models.GantryRecord{r.Clone(), r.Clone()})
	w := NewReweighter(stats)
	assert.InDelta(t, 2.0, w.Weight(r), 1e-9)
}

func TestReweightTierBoundaries(t *testing.T) {
	// 无统计时权重等于质量分，用质量分直接踩边界
	w := NewReweighter(nil)
	records := []*models.GantryRecord{
		weightedRecord("high", 1.5),
		weightedRecord("boundary_high", 1.2),
		weightedRecord("medium", 1.0),
		weightedRecord("boundary_low", 0.8),
		weightedRecord("low", 0.5),
	}

	weighted, tiers := w.Reweight(records)
	require.Len(t, weighted, 5)

	ids := func(rs []*models.GantryRecord) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID()
		}
		return out
	}
	assert.Equal(t, []string{"high"}, ids(tiers.High))
	// 边界值1.2与0.8均归入中层
	assert.Equal(t, []string{"boundary_high", "medium", "boundary_low"}, ids(tiers.Medium))
	assert.Equal(t, []string{"low"}, ids(tiers.Low))

	// 按权重降序，原切片顺序不变
	assert.Equal(t, []string{"high", "boundary_high", "medium", "boundary_low", "low"}, ids(weighted))
	assert.Equal(t, "high", records[0].ID())

	for _, r := range weighted {
		assert.Equal(t, r.Meta.QualityScore, r.Meta.QualityWeight)
	}
}

func TestReweightStableForEqualWeights(t *testing.T) {
	w := NewReweighter(nil)
	records := []*models.GantryRecord{
		weightedRecord("first", 1.0),
		weightedRecord("second", 1.0),
		weightedRecord("third", 1.0),
	}
	weighted, _ := w.Reweight(records)
	assert.Equal(t, "first", weighted[0].ID())
	assert.Equal(t, "second", weighted[1].ID())
	assert.Equal(t, "third", weighted[2].ID())
}
