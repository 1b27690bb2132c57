/*
 * @module service/distributed_lock/local_lock
 * @description 进程内锁实现，Redis不可用时的单实例降级方案，接口与Redis锁一致
 * @architecture 工具层 - 分布式锁的本地降级
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 获取锁 -> 执行生成运行 -> 释放锁/到期自动失效
 * @rules 仅保护单实例部署；多实例部署必须配置Redis
 * @dependencies sync, time
 * @refs service/distributed_lock/redis_lock.go
 */

package distributed_lock

import (
	"context"
	"sync"
	"time"
)

// LocalLock 进程内锁，按key维护到期时间
type LocalLock struct {
	mu    sync.Mutex
	holds map[string]time.Time
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{holds: make(map[string]time.Time)}
}

// TryLock 尝试获取锁，已过期的持有视为未持有
func (l *LocalLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if expiry, ok := l.holds[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	l.holds[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock 释放锁
func (l *LocalLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holds, key)
	return nil
}

// Refresh 刷新锁的过期时间
func (l *LocalLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.holds[key]; !ok {
		return ErrLockHeld
	}
	l.holds[key] = time.Now().Add(ttl)
	return nil
}

// IsLocked 检查锁是否存在且未过期
func (l *LocalLock) IsLocked(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.holds[key]
	return ok && time.Now().Before(expiry), nil
}
