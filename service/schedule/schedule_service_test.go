/*
 * @module service/schedule/schedule_service_test
 * @description 定时维护服务测试：cron表达式注册、未配置不启动、非法表达式报错
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 定时任务失败只记日志，不得影响服务生命周期
 * @dependencies github.com/stretchr/testify
 * @refs service/schedule/schedule_service.go
 */

package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gantry-dgm-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	refreshCalls  atomic.Int32
	generateCalls atomic.Int32
	lastCount     atomic.Int32
}

func (f *fakeRunner) RefreshPools(ctx context.Context) error {
	f.refreshCalls.Add(1)
	return nil
}

func (f *fakeRunner) Generate(ctx context.Context, count int, targets models.TargetDistribution) (*models.GenerateResult, string, error) {
	f.generateCalls.Add(1)
	f.lastCount.Store(int32(count))
	return &models.GenerateResult{}, "run-1", nil
}

func TestScheduleServiceNoSpecsDoesNotStart(t *testing.T) {
	t.Setenv("POOL_REFRESH_CRON", "")
	t.Setenv("SCHEDULED_GENERATE_CRON", "")

	s := NewScheduleService(&fakeRunner{})
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduleServiceInvalidSpec(t *testing.T) {
	t.Setenv("POOL_REFRESH_CRON", "not a cron spec")

	s := NewScheduleService(&fakeRunner{})
	assert.Error(t, s.Start())
}

func TestScheduleServiceRunsRegisteredJobs(t *testing.T) {
	// 秒级表达式：每秒触发一次
	t.Setenv("POOL_REFRESH_CRON", "* * * * * *")
	t.Setenv("SCHEDULED_GENERATE_CRON", "* * * * * *")
	t.Setenv("SCHEDULED_GENERATE_COUNT", "7")

	runner := &fakeRunner{}
	s := NewScheduleService(runner)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.refreshCalls.Load() > 0 && runner.generateCalls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, int32(7), runner.lastCount.Load())
}

func TestScheduleServiceGenerateCountDefault(t *testing.T) {
	t.Setenv("SCHEDULED_GENERATE_COUNT", "")
	s := NewScheduleService(&fakeRunner{})
	assert.Equal(t, 100, s.generateCount)

	t.Setenv("SCHEDULED_GENERATE_COUNT", "-5")
	s = NewScheduleService(&fakeRunner{})
	assert.Equal(t, 100, s.generateCount)
}
