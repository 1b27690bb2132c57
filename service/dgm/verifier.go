/*
 * @module service/dgm/verifier
 * @description 辅助校验器：可插拔的外部二次校验接口与缺省规则实现，用于过滤之外的独立复核
 * @architecture 领域服务层 - 可插拔扩展点
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 过滤通过的样本逐条复核 -> 未通过样本降级为拒绝并记录原因
 * @rules 辅助校验是可选环节，未启用时直接放行；校验失败不修复只否决
 * @dependencies context
 * @refs service/dgm/generator.go
 */

package dgm

import (
	"context"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// AuxiliaryVerifier 辅助校验器：对过滤通过的样本做独立复核
type AuxiliaryVerifier interface {
	// Verify 返回是否通过与未通过原因
	Verify(ctx context.Context, r *models.GantryRecord) (bool, string, error)
}

// RuleVerifier 缺省规则校验器：复核费用口径与门架拓扑这两类高代价错误
type RuleVerifier struct{}

// NewRuleVerifier 创建缺省规则校验器
func NewRuleVerifier() *RuleVerifier {
	return &RuleVerifier{}
}

// Verify 复核折扣费不超过应收费、门架在已知拓扑内
func (v *RuleVerifier) Verify(ctx context.Context, r *models.GantryRecord) (bool, string, error) {
	if r.GetInt("discount_fee") > r.GetInt("pay_fee") {
		return false, "discount_exceeds_pay_fee", nil
	}
	if _, ok := meta.GantryToSection[r.GetString("gantry_id")]; !ok {
		return false, "unknown_gantry", nil
	}
	return true, "", nil
}
