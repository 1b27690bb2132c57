/*
 * @module service/dgm/decomposer
 * @description 样本级分解器：把一条记录的生成拆成字段组序列，逐组调用预言机并在失败时回退到规则生成
 * @architecture 领域服务层 - 生成核心
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 选示例 -> 按拓扑顺序逐组生成 -> 预言机失败则该组规则回退并记入修正日志 -> 产出完整记录
 * @rules 后续组只读先前字段，绝不改写；身份字段生成后不可变更；单组失败不拖垮整条记录
 * @dependencies encoding/json, math/rand, github.com/spf13/cast
 * @refs service/dgm/oracle.go, service/dgm/demonstrations.go, service/meta/field_groups.go
 */

package dgm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"

	"github.com/spf13/cast"
)

// CorrectionReasonFallback 预言机失败回退规则生成时写入修正日志的原因标识
const CorrectionReasonFallback = "oracle_fallback"

// Decomposer 样本级分解器
type Decomposer struct {
	schema *FieldGroupSchema
	oracle Oracle

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDecomposer 创建分解器，seed固定时规则回退路径可复现
func NewDecomposer(schema *FieldGroupSchema, oracle Oracle, seed int64) *Decomposer {
	return &Decomposer{
		schema: schema,
		oracle: oracle,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Decompose 按字段组拓扑顺序生成一条完整记录
func (d *Decomposer) Decompose(ctx context.Context, cond models.GenerationCondition, demonstrations []*models.GantryRecord) (*models.GantryRecord, error) {
	record := models.NewGantryRecord()
	for _, group := range d.schema.Ordered() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := d.generateGroup(ctx, group, cond, record, demonstrations)
		if err != nil {
			slog.Debug("字段组预言机生成失败，回退规则生成",
				"group", group.Name, "error", err)
			values = d.ruleGenerateGroup(group, cond, record)
			record.AppendCorrection(group.Name, "", "", CorrectionReasonFallback)
		}
		for _, field := range group.Fields {
			record.Set(field, values[field])
		}
	}
	return record, nil
}

// generateGroup 调用预言机生成一个字段组，本地类型校验失败视同生成失败
func (d *Decomposer) generateGroup(ctx context.Context, group meta.FieldGroupConfig, cond models.GenerationCondition, record *models.GantryRecord, demonstrations []*models.GantryRecord) (map[string]interface{}, error) {
	if d.oracle == nil || !d.oracle.Available() {
		return nil, ErrOracleUnavailable
	}

	prompt := d.buildGroupPrompt(group, cond, record, demonstrations)
	completion, err := d.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	fragment, err := ExtractJSONObject(completion)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(fragment), &raw); err != nil {
		return nil, fmt.Errorf("解析字段组JSON失败: %w", err)
	}
	values, err := coerceGroupValues(group, raw)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// numericGroupFields 必须可转换为整数的字段
var numericGroupFields = map[string]bool{
	"pay_fee": true, "discount_fee": true, "fee_mileage": true, "total_weight": true,
}

// timeGroupFields 必须可按时间解析的字段（entrance_time允许为空表示异常通行）
var timeGroupFields = map[string]bool{
	"transaction_time": true,
}

// coerceGroupValues 对预言机产出做本地类型校验与归一化，任何字段不合格即整组失败
func coerceGroupValues(group meta.FieldGroupConfig, raw map[string]interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(group.Fields))
	for _, field := range group.Fields {
		v, ok := raw[field]
		if !ok {
			if field == "entrance_time" || field == "cpu_card_type" {
				values[field] = ""
				continue
			}
			return nil, fmt.Errorf("字段组%s缺少字段%s", group.Name, field)
		}
		if numericGroupFields[field] {
			n, err := cast.ToIntE(v)
			if err != nil {
				f, ferr := cast.ToFloat64E(v)
				if ferr != nil {
					return nil, fmt.Errorf("字段%s无法转换为数值: %v", field, v)
				}
				n = int(f)
			}
			values[field] = n
			continue
		}
		s := cast.ToString(v)
		if timeGroupFields[field] {
			if _, err := parseRecordTime(s); err != nil {
				return nil, fmt.Errorf("字段%s时间格式不合法: %s", field, s)
			}
		}
		values[field] = s
	}
	return values, nil
}

func parseRecordTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", s)
}

// buildGroupPrompt 构造单个字段组的生成提示词：条件描述 + 示例片段 + 已生成字段 + 输出要求
func (d *Decomposer) buildGroupPrompt(group meta.FieldGroupConfig, cond models.GenerationCondition, record *models.GantryRecord, demonstrations []*models.GantryRecord) string {
	var b strings.Builder
	b.WriteString("根据以下条件生成一条高速公路门架交易记录的部分字段。\n")
	fmt.Fprintf(&b, "生成条件：车辆类别=%s，时段=%s，场景=%s，基准时间=%s\n",
		cond.VehicleCategory, cond.TimePeriod, cond.Scenario, cond.BaseTime.Format("2006-01-02T15:04:05"))

	if len(demonstrations) > 0 {
		b.WriteString("参考真实样本片段：\n")
		for _, demo := range demonstrations {
			fragment := make(map[string]interface{}, len(group.Fields))
			for _, field := range group.Fields {
				if v, ok := demo.Get(field); ok {
					fragment[field] = v
				}
			}
			if payload, err := json.Marshal(fragment); err == nil {
				b.Write(payload)
				b.WriteByte('\n')
			}
		}
	}

	if fieldNames := record.FieldNames(); len(fieldNames) > 0 {
		b.WriteString("该记录已生成的字段（保持一致，不要改写）：\n")
		if payload, err := json.Marshal(record); err == nil {
			b.Write(payload)
			b.WriteByte('\n')
		}
	}

	fmt.Fprintf(&b, "只输出一个JSON对象，包含且仅包含字段：%s。数值字段输出数字，时间字段输出\"2006-01-02T15:04:05\"格式。",
		strings.Join(group.Fields, ", "))
	return b.String()
}

// ruleGenerateGroup 规则回退生成：按字段组分别走确定性的业务规则
func (d *Decomposer) ruleGenerateGroup(group meta.FieldGroupConfig, cond models.GenerationCondition, record *models.GantryRecord) map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch group.Name {
	case meta.GroupIdentity:
		return d.ruleIdentity(cond)
	case meta.GroupTime:
		return d.ruleTime(cond, record)
	case meta.GroupVehicle:
		return d.ruleVehicle(cond)
	case meta.GroupStatus:
		return d.ruleStatus(cond, record)
	case meta.GroupFee:
		return d.ruleFee(record)
	default:
		values := make(map[string]interface{}, len(group.Fields))
		for _, field := range group.Fields {
			values[field] = ""
		}
		return values
	}
}

// sortedGantryIDs 门架ID固定顺序（map遍历顺序不稳定，规则生成需要可复现）
var sortedGantryIDs = func() []string {
	ids := make([]string, 0, len(meta.GantryToSection))
	for id := range meta.GantryToSection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}()

func (d *Decomposer) ruleIdentity(cond models.GenerationCondition) map[string]interface{} {
	gantryID := sortedGantryIDs[d.rng.Intn(len(sortedGantryIDs))]
	sectionID := meta.GantryToSection[gantryID]
	txID := fmt.Sprintf("%s%s%04d", gantryID, cond.BaseTime.Format("20060102150405"), d.rng.Intn(10000))
	return map[string]interface{}{
		"gantry_transaction_id": txID,
		"pass_id":               fmt.Sprintf("01%s%06d", cond.BaseTime.Format("20060102"), d.rng.Intn(1000000)),
		"gantry_id":             gantryID,
		"section_id":            sectionID,
		"section_name":          meta.SectionNameByID[sectionID],
	}
}

func (d *Decomposer) ruleTime(cond models.GenerationCondition, record *models.GantryRecord) map[string]interface{} {
	// 交易日期取路段预配置的采样日期，时刻沿用条件基准时间
	day := cond.BaseTime
	if dates, ok := meta.SectionSampleDates[record.GetString("section_id")]; ok && len(dates) > 0 {
		if parsed, err := time.Parse("2006-01-02", dates[d.rng.Intn(len(dates))]); err == nil {
			day = parsed
		}
	}
	transaction := time.Date(day.Year(), day.Month(), day.Day(),
		cond.BaseTime.Hour(), cond.BaseTime.Minute(), cond.BaseTime.Second(), 0, time.UTC)

	entrance := ""
	if cond.Scenario != meta.ScenarioAnomalous {
		travelHours := meta.MinTravelHours + d.rng.Float64()*(meta.MaxTravelHours-meta.MinTravelHours)
		entrance = transaction.Add(-time.Duration(travelHours * float64(time.Hour))).Format("2006-01-02T15:04:05")
	}
	return map[string]interface{}{
		"transaction_time": transaction.Format("2006-01-02T15:04:05"),
		"entrance_time":    entrance,
	}
}

func (d *Decomposer) ruleVehicle(cond models.GenerationCondition) map[string]interface{} {
	var vehicleType string
	switch cond.VehicleCategory {
	case meta.VehicleCategoryPassenger:
		vehicleType = cast.ToString(meta.PassengerTypeMin + d.rng.Intn(meta.PassengerTypeMax-meta.PassengerTypeMin+1))
	case meta.VehicleCategoryTruck:
		vehicleType = cast.ToString(meta.TruckTypeMin + d.rng.Intn(meta.TruckTypeMax-meta.TruckTypeMin+1))
	default:
		vehicleType = cast.ToString(meta.SpecialTypeMin + d.rng.Intn(meta.SpecialTypeMax-meta.SpecialTypeMin+1))
	}
	axleCount := meta.ExpectedAxles[vehicleType]

	var weight int
	if cond.VehicleCategory == meta.VehicleCategoryPassenger {
		weight = meta.PassengerWeightMin + d.rng.Intn(meta.PassengerWeightMax-meta.PassengerWeightMin+1)
	} else {
		limit := meta.AxleWeightLimit(axleCount)
		if cond.Scenario == meta.ScenarioOverloaded {
			// 超载场景：超限5%-30%
			weight = limit + int(float64(limit)*(0.05+d.rng.Float64()*0.25))
		} else {
			weight = int(float64(limit) * (0.4 + d.rng.Float64()*0.55))
		}
	}
	return map[string]interface{}{
		"vehicle_type": vehicleType,
		"axle_count":   axleCount,
		"total_weight": weight,
		"vehicle_sign": "0",
	}
}

func (d *Decomposer) ruleStatus(cond models.GenerationCondition, record *models.GantryRecord) map[string]interface{} {
	mediaType := "1"
	if d.rng.Float64() < 0.3 {
		mediaType = "2"
	}
	cpuCardType := ""
	if mediaType == "2" {
		cpuCardType = "22"
	}
	passState := "1"
	if cond.Scenario == meta.ScenarioAnomalous {
		passState = "0"
	}
	return map[string]interface{}{
		"gantry_type":      cast.ToString(1 + d.rng.Intn(3)),
		"media_type":       mediaType,
		"transaction_type": "9",
		"pass_state":       passState,
		"cpu_card_type":    cpuCardType,
	}
}

func (d *Decomposer) ruleFee(record *models.GantryRecord) map[string]interface{} {
	// 门架计费里程5-60公里（米）
	mileage := (5 + d.rng.Intn(56)) * 1000
	payFee := meta.ExpectedFee(mileage, record.GetString("vehicle_type"))
	discountFee := 0
	if record.GetString("media_type") == "1" {
		discountFee = int(float64(payFee) * meta.ETCDiscountRate)
	}
	return map[string]interface{}{
		"pay_fee":      payFee,
		"discount_fee": discountFee,
		"fee_mileage":  mileage,
	}
}
