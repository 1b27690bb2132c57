/*
 * @module service/pool/loader_test
 * @description 样本池加载器测试：数据库与JSON文件两种来源、训练/基准交错切分、来源未配置报错
 * @architecture 单元测试 - 内存sqlite与临时文件
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试执行流程
 * @rules 同一条真实记录不得同时出现在训练池与基准池
 * @dependencies github.com/stretchr/testify, gantry-dgm-service/testutil
 * @refs service/pool/loader.go
 */

package pool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gantry-dgm-service/service/models"
	"gantry-dgm-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderSplitsTrainingAndBenchmark(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	tdb.SeedGantryTransactions(10)

	loader := NewLoader(tdb.DB)
	training, err := loader.LoadTraining(context.Background(), 0)
	require.NoError(t, err)
	benchmark, err := loader.LoadBenchmark(context.Background(), 0)
	require.NoError(t, err)

	assert.Len(t, training, 5)
	assert.Len(t, benchmark, 5)

	// 交错切分：两个池不共享任何记录
	trainingIDs := make(map[string]bool, len(training))
	for _, r := range training {
		trainingIDs[r.ID()] = true
	}
	for _, r := range benchmark {
		assert.False(t, trainingIDs[r.ID()], "记录%s同时出现在两个池", r.ID())
	}
}

func TestLoaderRespectsLimit(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	tdb.SeedGantryTransactions(10)

	loader := NewLoader(tdb.DB)
	training, err := loader.LoadTraining(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, training, 2)
}

func TestJSONLoader(t *testing.T) {
	base := time.Date(2023, 2, 20, 8, 0, 0, 0, time.UTC)
	transactions := make([]models.GantryTransaction, 0, 4)
	for i := 0; i < 4; i++ {
		transactions = append(transactions, testutil.MakeGantryTransaction(i, base.Add(time.Duration(i)*time.Hour)))
	}
	payload, err := json.Marshal(transactions)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pool.json")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	loader := NewJSONLoader(path)
	training, err := loader.LoadTraining(context.Background(), 0)
	require.NoError(t, err)
	benchmark, err := loader.LoadBenchmark(context.Background(), 0)
	require.NoError(t, err)

	assert.Len(t, training, 2)
	assert.Len(t, benchmark, 2)
	assert.Equal(t, transactions[0].GantryTransactionID, training[0].ID())
	assert.Equal(t, transactions[1].GantryTransactionID, benchmark[0].ID())
}

func TestJSONLoaderErrors(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		loader := NewJSONLoader(filepath.Join(t.TempDir(), "missing.json"))
		_, err := loader.LoadTraining(context.Background(), 0)
		assert.Error(t, err)
	})

	t.Run("内容不是JSON数组", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		loader := NewJSONLoader(path)
		_, err := loader.LoadTraining(context.Background(), 0)
		assert.Error(t, err)
	})
}

func TestLoaderUnconfiguredSource(t *testing.T) {
	loader := &Loader{}
	_, err := loader.LoadTraining(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "样本池来源未配置")
}
