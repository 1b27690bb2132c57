/*
 * @module service/distributed_lock/local_lock_test
 * @description 进程内锁与带锁执行器测试：互斥、过期失效、续期与ErrLockHeld语义
 * @architecture 单元测试
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 锁被占用必须返回ErrLockHeld而非静默跳过
 * @dependencies github.com/stretchr/testify
 * @refs service/distributed_lock/local_lock.go, service/distributed_lock/redis_lock.go
 */

package distributed_lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	locked, err := lock.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	// 持有期间再次获取失败
	locked, err = lock.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)

	held, err := lock.IsLocked(ctx, "run")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, lock.Unlock(ctx, "run"))
	locked, err = lock.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLocalLockExpiry(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	locked, err := lock.TryLock(ctx, "run", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, locked)

	time.Sleep(20 * time.Millisecond)

	// 过期的持有视为未持有
	held, err := lock.IsLocked(ctx, "run")
	require.NoError(t, err)
	assert.False(t, held)

	locked, err = lock.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLocalLockRefresh(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	_, err := lock.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, lock.Refresh(ctx, "run", time.Minute))

	// 未持有的锁不可续期
	assert.Error(t, lock.Refresh(ctx, "missing", time.Minute))
}

func TestExecuteWithLockReturnsErrLockHeld(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()
	executor := NewLockExecutor(lock)

	executed := false
	err := executor.ExecuteWithLock(ctx, "run", time.Minute, func() error {
		executed = true
		// 执行中同键再次进入必须拿到ErrLockHeld
		inner := executor.ExecuteWithLock(ctx, "run", time.Minute, func() error { return nil })
		assert.ErrorIs(t, inner, ErrLockHeld)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed)

	// 执行结束锁已释放
	held, err := lock.IsLocked(ctx, "run")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestExecuteWithLockPropagatesError(t *testing.T) {
	ctx := context.Background()
	executor := NewLockExecutor(NewLocalLock())

	wantErr := assert.AnError
	err := executor.ExecuteWithLock(ctx, "run", time.Minute, func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestExecuteWithLockAndRefresh(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()
	executor := NewLockExecutor(lock)

	err := executor.ExecuteWithLockAndRefresh(ctx, "run", 100*time.Millisecond, 20*time.Millisecond, func() error {
		// 执行时长超过TTL，由续期协程维持锁
		time.Sleep(150 * time.Millisecond)
		held, lockErr := lock.IsLocked(ctx, "run")
		require.NoError(t, lockErr)
		assert.True(t, held)
		return nil
	})
	require.NoError(t, err)

	held, err := lock.IsLocked(ctx, "run")
	require.NoError(t, err)
	assert.False(t, held)
}
