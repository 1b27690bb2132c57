/*
 * @module service/meta/field_groups
 * @description 门架交易记录的字段分组静态配置，声明每个字段组包含的字段及其前置依赖
 * @architecture 元数据层 - 静态结构声明
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 配置在编译期固定，由 service/dgm 在加载时做一次有向无环校验与拓扑排序
 * @rules 字段组依赖必须构成有向无环图，出现环属于配置错误而非运行时异常
 * @dependencies 无
 * @refs service/dgm/schema.go
 */

package meta

// FieldGroupConfig 字段组配置：组名、组内字段（有序）、前置组
type FieldGroupConfig struct {
	Name     string   `json:"name"`
	Fields   []string `json:"fields"`
	Requires []string `json:"requires"`
}

// 字段组名
const (
	GroupIdentity = "identity"
	GroupTime     = "time"
	GroupVehicle  = "vehicle"
	GroupStatus   = "status"
	GroupFee      = "fee"
)

// GantryFieldGroups 门架交易记录的字段分组（声明顺序即拓扑排序的并列决胜顺序）
//
// 依赖关系：time组需要identity组的路段信息确定采样日期；
// status组和fee组依赖vehicle组的车型判断场景与费率。
var GantryFieldGroups = []FieldGroupConfig{
	{
		Name:   GroupIdentity,
		Fields: []string{"gantry_transaction_id", "pass_id", "gantry_id", "section_id", "section_name"},
	},
	{
		Name:     GroupTime,
		Fields:   []string{"transaction_time", "entrance_time"},
		Requires: []string{GroupIdentity},
	},
	{
		Name:   GroupVehicle,
		Fields: []string{"vehicle_type", "axle_count", "total_weight", "vehicle_sign"},
	},
	{
		Name:     GroupStatus,
		Fields:   []string{"gantry_type", "media_type", "transaction_type", "pass_state", "cpu_card_type"},
		Requires: []string{GroupVehicle},
	},
	{
		Name:     GroupFee,
		Fields:   []string{"pay_fee", "discount_fee", "fee_mileage"},
		Requires: []string{GroupVehicle},
	},
}

// RequiredFields 必填字段（过滤器完整性检查使用）
var RequiredFields = []string{
	"gantry_transaction_id", "gantry_id", "vehicle_type",
	"transaction_time", "entrance_time", "pay_fee", "fee_mileage",
}

// AllFields 按字段组声明顺序展开的全部字段
func AllFields() []string {
	fields := make([]string, 0, 19)
	for _, group := range GantryFieldGroups {
		fields = append(fields, group.Fields...)
	}
	return fields
}
