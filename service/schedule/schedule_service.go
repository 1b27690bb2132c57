/*
 * @module service/schedule/schedule_service
 * @description 定时维护服务：按cron表达式定期刷新样本池统计，并可选地执行计划生成运行
 * @architecture 分层架构 - 任务调度层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 服务启动注册cron任务 -> 到点执行池刷新/计划生成 -> 服务停止注销
 * @rules 计划任务失败只记日志等待下一轮；计划生成沿用单飞锁，与手工触发互斥
 * @dependencies github.com/robfig/cron/v3
 * @refs service/generation_service.go
 */

package schedule

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gantry-dgm-service/service/models"

	"github.com/robfig/cron/v3"
)

// GenerationRunner 定时任务依赖的生成服务能力。
// 池刷新重放操作者上次初始化的参数，定时任务不得自带一套初始化配置
type GenerationRunner interface {
	RefreshPools(ctx context.Context) error
	Generate(ctx context.Context, count int, targets models.TargetDistribution) (*models.GenerateResult, string, error)
}

// ScheduleService 定时维护服务
type ScheduleService struct {
	runner GenerationRunner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	refreshSpec   string
	generateSpec  string
	generateCount int
}

// NewScheduleService 创建定时维护服务，cron表达式从环境变量读取
// POOL_REFRESH_CRON 样本池刷新；SCHEDULED_GENERATE_CRON + SCHEDULED_GENERATE_COUNT 计划生成
func NewScheduleService(runner GenerationRunner) *ScheduleService {
	ctx, cancel := context.WithCancel(context.Background())

	count := 100
	if v := os.Getenv("SCHEDULED_GENERATE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	return &ScheduleService{
		runner:        runner,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		refreshSpec:   os.Getenv("POOL_REFRESH_CRON"),
		generateSpec:  os.Getenv("SCHEDULED_GENERATE_CRON"),
		generateCount: count,
	}
}

// Start 注册并启动cron任务，未配置任何表达式时不启动
func (s *ScheduleService) Start() error {
	registered := 0

	if s.refreshSpec != "" {
		if _, err := s.cron.AddFunc(s.refreshSpec, s.refreshPools); err != nil {
			return err
		}
		registered++
		slog.Info("样本池刷新任务已注册", "cron", s.refreshSpec)
	}

	if s.generateSpec != "" {
		if _, err := s.cron.AddFunc(s.generateSpec, s.scheduledGenerate); err != nil {
			return err
		}
		registered++
		slog.Info("计划生成任务已注册", "cron", s.generateSpec, "count", s.generateCount)
	}

	if registered == 0 {
		slog.Info("未配置定时任务，定时维护服务不启动")
		return nil
	}
	s.cron.Start()
	return nil
}

// Stop 停止定时维护服务
func (s *ScheduleService) Stop() {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	slog.Info("定时维护服务已停止")
}

// refreshPools 按上次初始化参数重新加载样本池并重学统计
func (s *ScheduleService) refreshPools() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if err := s.runner.RefreshPools(ctx); err != nil {
		slog.Error("定时样本池刷新失败", "error", err)
		return
	}
	slog.Info("定时样本池刷新完成")
}

// scheduledGenerate 执行一次计划生成运行
func (s *ScheduleService) scheduledGenerate() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	result, runID, err := s.runner.Generate(ctx, s.generateCount, nil)
	if err != nil {
		slog.Error("计划生成运行失败", "error", err)
		return
	}
	slog.Info("计划生成运行完成",
		"run_id", runID,
		"delivered", result.Statistics.FinalCount,
		"requested", s.generateCount)
}
