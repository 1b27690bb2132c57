/*
 * @module service/models/generation_run
 * @description 生成运行历史模型，记录每次生成运行的规模、质量分数与常见问题摘要
 * @architecture 数据模型层 - 持久化实体
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 运行开始时创建(running)，结束时更新为completed/aborted/failed
 * @rules 运行记录只追加和状态更新，不删除
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/dgm/generator.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 生成运行状态
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
	RunStatusFailed    = "failed"
)

// GenerationRun 生成运行历史
type GenerationRun struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Status         string         `json:"status" gorm:"not null;default:'running';size:20"`
	Requested      int            `json:"requested" gorm:"not null"`
	Attempts       int            `json:"attempts"`
	AcceptedCount  int            `json:"accepted_count"`
	RejectedCount  int            `json:"rejected_count"`
	FinalCount     int            `json:"final_count"`
	FallbackCount  int            `json:"fallback_count"`
	Faithfulness   float64        `json:"faithfulness"`
	Diversity      float64        `json:"diversity"`
	DirectOverall  float64        `json:"direct_overall"`
	IndirectOverall float64       `json:"indirect_overall"`
	CommonIssues   pq.StringArray `json:"common_issues" gorm:"type:text[]"`
	StartedAt      time.Time      `json:"started_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	FinishedAt     *time.Time     `json:"finished_at"`
	CreatedBy      string         `json:"created_by" gorm:"not null;default:'system';size:100"`
}

// TableName 指定表名
func (GenerationRun) TableName() string {
	return "generation_runs"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (gr *GenerationRun) BeforeCreate(tx *gorm.DB) error {
	if gr.ID == "" {
		gr.ID = uuid.New().String()
	}
	if gr.CreatedBy == "" {
		gr.CreatedBy = "system"
	}
	return nil
}
