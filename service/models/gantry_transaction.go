/*
 * @module service/models/gantry_transaction
 * @description 门架交易持久化模型，参考样本池与基准样本池从该表加载
 * @architecture 数据模型层 - 持久化实体
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 样本池数据只读加载，生成流程不回写该表
 * @rules 表结构与原始门架交易采集表对齐，字段均为采集口径的字符串/整型
 * @dependencies gorm.io/gorm
 * @refs service/pool
 */

package models

import (
	"time"
)

// GantryTransaction 门架交易表模型（真实采集数据，样本池只读来源）
type GantryTransaction struct {
	GantryTransactionID string    `json:"gantry_transaction_id" gorm:"primaryKey;size:64;column:gantry_transaction_id"`
	PassID              string    `json:"pass_id" gorm:"size:64"`
	GantryID            string    `json:"gantry_id" gorm:"not null;size:32;index"`
	SectionID           string    `json:"section_id" gorm:"size:32;index"`
	SectionName         string    `json:"section_name" gorm:"size:128"`
	TransactionTime     string    `json:"transaction_time" gorm:"size:32"`
	EntranceTime        string    `json:"entrance_time" gorm:"size:32"`
	VehicleType         string    `json:"vehicle_type" gorm:"size:8;index"`
	AxleCount           string    `json:"axle_count" gorm:"size:4"`
	TotalWeight         int       `json:"total_weight"`
	VehicleSign         string    `json:"vehicle_sign" gorm:"size:8"`
	GantryType          string    `json:"gantry_type" gorm:"size:4"`
	MediaType           string    `json:"media_type" gorm:"size:4"`
	TransactionType     string    `json:"transaction_type" gorm:"size:8"`
	PassState           string    `json:"pass_state" gorm:"size:4"`
	CPUCardType         string    `json:"cpu_card_type" gorm:"size:4;column:cpu_card_type"`
	PayFee              int       `json:"pay_fee"`
	DiscountFee         int       `json:"discount_fee"`
	FeeMileage          int       `json:"fee_mileage"`
	CreatedAt           time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (GantryTransaction) TableName() string {
	return "gantry_transactions"
}

// ToRecord 转换为生成管线使用的有序记录，字段顺序与字段组声明一致。
// 值接收者：允许在函数返回值等不可寻址的临时值上直接转换
func (t GantryTransaction) ToRecord() *GantryRecord {
	r := NewGantryRecord()
	r.Set("gantry_transaction_id", t.GantryTransactionID)
	r.Set("pass_id", t.PassID)
	r.Set("gantry_id", t.GantryID)
	r.Set("section_id", t.SectionID)
	r.Set("section_name", t.SectionName)
	r.Set("transaction_time", t.TransactionTime)
	r.Set("entrance_time", t.EntranceTime)
	r.Set("vehicle_type", t.VehicleType)
	r.Set("axle_count", t.AxleCount)
	r.Set("total_weight", t.TotalWeight)
	r.Set("vehicle_sign", t.VehicleSign)
	r.Set("gantry_type", t.GantryType)
	r.Set("media_type", t.MediaType)
	r.Set("transaction_type", t.TransactionType)
	r.Set("pass_state", t.PassState)
	r.Set("cpu_card_type", t.CPUCardType)
	r.Set("pay_fee", t.PayFee)
	r.Set("discount_fee", t.DiscountFee)
	r.Set("fee_mileage", t.FeeMileage)
	return r
}
