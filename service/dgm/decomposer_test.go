/*
 * @module service/dgm/decomposer_test
 * @description 分解器测试：规则回退生成完整记录、预言机混合路径、产出类型校验与上下文取消
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 规则回退必须留下修正日志；身份字段生成后不可变
 * @dependencies github.com/stretchr/testify
 * @refs service/dgm/decomposer.go
 */

package dgm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOracle 只应答字段列表包含answerField的提示词，其余一律报错
type stubOracle struct {
	answerField string
	completion  string
	calls       int
}

func (o *stubOracle) Complete(ctx context.Context, prompt string) (string, error) {
	o.calls++
	if o.answerField != "" && strings.Contains(prompt, o.answerField) {
		return o.completion, nil
	}
	return "", errors.New("stub: no answer")
}

func (o *stubOracle) Available() bool { return true }

func mustSchema(t *testing.T) *FieldGroupSchema {
	t.Helper()
	schema, err := NewFieldGroupSchema(meta.GantryFieldGroups)
	require.NoError(t, err)
	return schema
}

func normalCondition() models.GenerationCondition {
	return models.GenerationCondition{
		VehicleCategory: meta.VehicleCategoryPassenger,
		TimePeriod:      meta.TimePeriodMorningRush,
		Scenario:        meta.ScenarioNormal,
		BaseTime:        time.Date(2023, 2, 20, 8, 15, 30, 0, time.UTC),
	}
}

func TestDecomposeRuleFallbackProducesCompleteRecord(t *testing.T) {
	d := NewDecomposer(mustSchema(t), nil, 1)

	record, err := d.Decompose(context.Background(), normalCondition(), nil)
	require.NoError(t, err)
	assert.Len(t, record.FieldNames(), 19)

	// 每个字段组都走了规则回退，各留一条修正日志
	fallbacks := 0
	for _, c := range record.Meta.CorrectionLog {
		if c.Reason == CorrectionReasonFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 5, fallbacks)

	// 门架与路段拓扑一致
	gantryID := record.GetString("gantry_id")
	sectionID, ok := meta.GantryToSection[gantryID]
	require.True(t, ok, "未知门架: %s", gantryID)
	assert.Equal(t, sectionID, record.GetString("section_id"))
	assert.Equal(t, meta.SectionNameByID[sectionID], record.GetString("section_name"))

	// 行程时长在合理区间
	transaction, hasTx := record.GetTime("transaction_time")
	entrance, hasEntrance := record.GetTime("entrance_time")
	require.True(t, hasTx)
	require.True(t, hasEntrance)
	travel := transaction.Sub(entrance).Hours()
	assert.GreaterOrEqual(t, travel, meta.MinTravelHours-0.001)
	assert.LessOrEqual(t, travel, meta.MaxTravelHours)

	// 费用与里程按费率自洽，客车车型在1-4
	vehicleType := record.GetString("vehicle_type")
	assert.Equal(t, meta.VehicleCategoryPassenger, VehicleCategoryOf(vehicleType))
	expected := meta.ExpectedFee(record.GetInt("fee_mileage"), vehicleType)
	assert.Equal(t, expected, record.GetInt("pay_fee"))
}

func TestDecomposeAnomalousScenarioDropsEntrance(t *testing.T) {
	d := NewDecomposer(mustSchema(t), nil, 1)
	cond := normalCondition()
	cond.Scenario = meta.ScenarioAnomalous

	record, err := d.Decompose(context.Background(), cond, nil)
	require.NoError(t, err)
	assert.False(t, record.Has("entrance_time"))
	assert.Equal(t, "0", record.GetString("pass_state"))
}

func TestDecomposeOverloadedScenarioExceedsLimit(t *testing.T) {
	d := NewDecomposer(mustSchema(t), nil, 1)
	cond := normalCondition()
	cond.VehicleCategory = meta.VehicleCategoryTruck
	cond.Scenario = meta.ScenarioOverloaded

	record, err := d.Decompose(context.Background(), cond, nil)
	require.NoError(t, err)
	assert.True(t, IsOverloaded(record))
}

func TestDecomposeMixedOraclePath(t *testing.T) {
	// 预言机只应答vehicle组，其余组回退规则生成
	oracle := &stubOracle{
		answerField: "vehicle_sign",
		completion:  "```json\n{\"vehicle_type\":\"2\",\"axle_count\":\"2\",\"total_weight\":3000,\"vehicle_sign\":\"0\"}\n```",
	}
	d := NewDecomposer(mustSchema(t), oracle, 1)

	record, err := d.Decompose(context.Background(), normalCondition(), nil)
	require.NoError(t, err)
	assert.Equal(t, "2", record.GetString("vehicle_type"))
	assert.Equal(t, 3000, record.GetInt("total_weight"))

	fallbacks := 0
	for _, c := range record.Meta.CorrectionLog {
		if c.Reason == CorrectionReasonFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 4, fallbacks)
	assert.GreaterOrEqual(t, oracle.calls, 5)
}

func TestDecomposeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecomposer(mustSchema(t), nil, 1)
	_, err := d.Decompose(ctx, normalCondition(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoerceGroupValues(t *testing.T) {
	feeGroup := meta.FieldGroupConfig{
		Name:   meta.GroupFee,
		Fields: []string{"pay_fee", "discount_fee", "fee_mileage"},
	}

	t.Run("数值字符串归一化", func(t *testing.T) {
		values, err := coerceGroupValues(feeGroup, map[string]interface{}{
			"pay_fee": "1500", "discount_fee": 75.0, "fee_mileage": "30000.0",
		})
		require.NoError(t, err)
		assert.Equal(t, 1500, values["pay_fee"])
		assert.Equal(t, 75, values["discount_fee"])
		assert.Equal(t, 30000, values["fee_mileage"])
	})

	t.Run("数值不可转换整组失败", func(t *testing.T) {
		_, err := coerceGroupValues(feeGroup, map[string]interface{}{
			"pay_fee": "十五元", "discount_fee": 0, "fee_mileage": 30000,
		})
		assert.Error(t, err)
	})

	t.Run("缺少字段整组失败", func(t *testing.T) {
		_, err := coerceGroupValues(feeGroup, map[string]interface{}{"pay_fee": 1500})
		assert.Error(t, err)
	})

	timeGroup := meta.FieldGroupConfig{
		Name:   meta.GroupTime,
		Fields: []string{"transaction_time", "entrance_time"},
	}

	t.Run("入口时间允许缺失", func(t *testing.T) {
		values, err := coerceGroupValues(timeGroup, map[string]interface{}{
			"transaction_time": "2023-02-20T08:15:30",
		})
		require.NoError(t, err)
		assert.Equal(t, "", values["entrance_time"])
	})

	t.Run("交易时间格式不合法整组失败", func(t *testing.T) {
		_, err := coerceGroupValues(timeGroup, map[string]interface{}{
			"transaction_time": "昨天早上",
		})
		assert.Error(t, err)
	})
}
