/*
 * @module service/generation_service
 * @description 生成运行服务：组合管线编排器、运行历史持久化、单飞锁与事件发布，提供API层调用的门面
 * @architecture 分层架构 - 服务门面
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 创建运行记录(running) -> 锁保护下执行生成 -> 更新运行记录 -> 发布运行完成事件
 * @rules 同一时刻只允许一个生成运行；运行历史只追加与状态更新；事件发布失败不影响结果返回
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dgm/generator.go, client/connectors
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gantry-dgm-service/client/connectors"
	"gantry-dgm-service/service/distributed_lock"
	"gantry-dgm-service/service/dgm"
	"gantry-dgm-service/service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// generationLockKey 生成运行的单飞锁键
const generationLockKey = "generation_run"

// generationLockTTL 锁过期时间，超长运行由续期协程维持
const generationLockTTL = 10 * time.Minute

// GenerationService 生成运行服务
type GenerationService struct {
	db        *gorm.DB
	generator *dgm.Generator
	lockExec  *distributed_lock.LockExecutor
	kafka     *connectors.KafkaRunPublisher
	mqtt      *connectors.MQTTProgressPublisher

	// 当前运行标识：运行协程写入，Status与进度发布并发读取
	runMu            sync.Mutex
	currentRunID     string
	currentRequested int
}

// NewGenerationService 创建生成运行服务
func NewGenerationService(db *gorm.DB, pools dgm.PoolProvider, oracle dgm.Oracle, lock distributed_lock.DistributedLock) *GenerationService {
	s := &GenerationService{
		db:       db,
		lockExec: distributed_lock.NewLockExecutor(lock),
		kafka:    connectors.NewKafkaRunPublisherFromEnv(),
		mqtt:     connectors.NewMQTTProgressPublisherFromEnv(),
	}
	s.generator = dgm.NewGenerator(pools, oracle, dgm.GeneratorOptions{
		OnProgress: s.publishProgress,
	})
	return s
}

// Initialize 初始化生成器（加载样本池、学习统计）
func (s *GenerationService) Initialize(ctx context.Context, trainingLimit, benchmarkLimit int, useAuxiliary bool) error {
	return s.generator.Initialize(ctx, trainingLimit, benchmarkLimit, useAuxiliary)
}

// RefreshPools 按上次初始化参数重新加载样本池，供定时维护任务调用
func (s *GenerationService) RefreshPools(ctx context.Context) error {
	return s.generator.RefreshPools(ctx)
}

// Generate 在单飞锁保护下执行一次生成运行，持久化运行历史并发布完成事件
func (s *GenerationService) Generate(ctx context.Context, count int, targets models.TargetDistribution) (*models.GenerateResult, string, error) {
	runID := uuid.New().String()
	var result *models.GenerateResult

	err := s.lockExec.ExecuteWithLockAndRefresh(ctx, generationLockKey, generationLockTTL, generationLockTTL/3, func() error {
		s.setCurrentRun(runID, count)
		defer s.setCurrentRun("", 0)

		run := &models.GenerationRun{ID: runID, Requested: count, Status: models.RunStatusRunning, StartedAt: time.Now()}
		s.saveRun(run)

		var genErr error
		result, genErr = s.generator.Generate(ctx, count, targets)
		if genErr != nil {
			s.finishRun(run, models.RunStatusFailed, nil)
			return genErr
		}

		status := models.RunStatusCompleted
		if result.Statistics.Aborted {
			status = models.RunStatusAborted
		}
		s.finishRun(run, status, result)
		s.publishRunCompleted(runID, status, result)
		return nil
	})
	if err != nil {
		if err == distributed_lock.ErrLockHeld {
			return nil, "", fmt.Errorf("已有生成运行在执行中: %w", err)
		}
		return nil, "", err
	}
	return result, runID, nil
}

func (s *GenerationService) setCurrentRun(runID string, requested int) {
	s.runMu.Lock()
	s.currentRunID = runID
	s.currentRequested = requested
	s.runMu.Unlock()
}

func (s *GenerationService) currentRun() (string, int) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.currentRunID, s.currentRequested
}

// Status 生成器状态与当前运行
func (s *GenerationService) Status() map[string]interface{} {
	status := s.generator.Status()
	runID, _ := s.currentRun()
	return map[string]interface{}{
		"generator":      status,
		"current_run_id": runID,
	}
}

// RecentRuns 最近的运行历史
func (s *GenerationService) RecentRuns(limit int) ([]models.GenerationRun, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var runs []models.GenerationRun
	err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("查询运行历史失败: %w", err)
	}
	return runs, nil
}

func (s *GenerationService) saveRun(run *models.GenerationRun) {
	if s.db == nil {
		return
	}
	if err := s.db.Create(run).Error; err != nil {
		slog.Error("创建运行记录失败", "run_id", run.ID, "error", err)
	}
}

func (s *GenerationService) finishRun(run *models.GenerationRun, status string, result *models.GenerateResult) {
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
	if result != nil {
		run.Attempts = result.Statistics.Attempts
		run.AcceptedCount = result.Statistics.AcceptedCount
		run.RejectedCount = result.Statistics.RejectedCount
		run.FinalCount = result.Statistics.FinalCount
		run.FallbackCount = result.Statistics.FallbackCount
		run.Faithfulness = result.Evaluation.Direct.Faithfulness
		run.Diversity = result.Evaluation.Direct.Diversity
		run.DirectOverall = result.Evaluation.Direct.Overall
		run.IndirectOverall = result.Evaluation.Indirect.Overall
		for issue := range result.Evaluation.Direct.CommonIssues {
			run.CommonIssues = append(run.CommonIssues, issue)
		}
	}
	if s.db == nil {
		return
	}
	if err := s.db.Save(run).Error; err != nil {
		slog.Error("更新运行记录失败", "run_id", run.ID, "error", err)
	}
}

func (s *GenerationService) publishRunCompleted(runID, status string, result *models.GenerateResult) {
	if s.kafka == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.kafka.PublishRunCompleted(ctx, connectors.RunCompletedEvent{
		RunID:      runID,
		Status:     status,
		Statistics: result.Statistics,
		Direct:     result.Evaluation.Direct,
		Indirect:   result.Evaluation.Indirect,
		FinishedAt: time.Now(),
	})
}

func (s *GenerationService) publishProgress(accepted, rejected, attempts int) {
	if s.mqtt == nil {
		return
	}
	runID, requested := s.currentRun()
	s.mqtt.PublishProgress(connectors.ProgressEvent{
		RunID:     runID,
		Requested: requested,
		Accepted:  accepted,
		Rejected:  rejected,
		Attempts:  attempts,
	})
}

// Close 释放事件发布器资源
func (s *GenerationService) Close() {
	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			slog.Warn("关闭Kafka发布器失败", "error", err)
		}
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
}
