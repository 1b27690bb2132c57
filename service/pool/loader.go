/*
 * @module service/pool
 * @description 样本池加载器：训练池与基准池从门架交易表或JSON文件加载，池数据只读
 * @architecture 数据访问层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 按配置选择数据库或文件来源 -> 加载转换为生成记录 -> 交给生成器只读使用
 * @rules 训练池与基准池按主键交错切分，保证同一条真实记录不会同时出现在两个池
 * @dependencies gorm.io/gorm, encoding/json
 * @refs service/models/gantry_transaction.go, service/dgm/generator.go
 */

package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gantry-dgm-service/service/models"
	"gantry-dgm-service/service/utils"

	"gorm.io/gorm"
)

// Loader 样本池加载器，DB与JSON文件来源二选一（DB优先）
type Loader struct {
	db        *gorm.DB
	jsonPath  string
	converter *utils.DataConverter
}

// NewLoader 创建数据库来源的加载器
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db, converter: utils.NewDataConverter()}
}

// NewJSONLoader 创建JSON文件来源的加载器，文件内容为门架交易记录数组
func NewJSONLoader(path string) *Loader {
	return &Loader{jsonPath: path, converter: utils.NewDataConverter()}
}

// LoadTraining 加载训练样本池（主键升序的偶数位记录）
func (l *Loader) LoadTraining(ctx context.Context, limit int) ([]*models.GantryRecord, error) {
	return l.load(ctx, limit, 0)
}

// LoadBenchmark 加载基准样本池（主键升序的奇数位记录）
func (l *Loader) LoadBenchmark(ctx context.Context, limit int) ([]*models.GantryRecord, error) {
	return l.load(ctx, limit, 1)
}

// load 按主键序交错切分加载，parity=0取偶数位，parity=1取奇数位
func (l *Loader) load(ctx context.Context, limit, parity int) ([]*models.GantryRecord, error) {
	transactions, err := l.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*models.GantryRecord, 0, len(transactions)/2)
	for i, t := range transactions {
		if i%2 != parity {
			continue
		}
		// 历史采集来源的路段名称可能带GBK编码残留
		t.SectionName = l.converter.NormalizeSectionName(t.SectionName)
		records = append(records, t.ToRecord())
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	slog.Debug("样本池加载完成", "parity", parity, "count", len(records))
	return records, nil
}

func (l *Loader) loadAll(ctx context.Context) ([]models.GantryTransaction, error) {
	if l.db != nil {
		var transactions []models.GantryTransaction
		err := l.db.WithContext(ctx).
			Order("gantry_transaction_id").
			Find(&transactions).Error
		if err != nil {
			return nil, fmt.Errorf("查询门架交易表失败: %w", err)
		}
		return transactions, nil
	}

	if l.jsonPath != "" {
		data, err := os.ReadFile(l.jsonPath)
		if err != nil {
			return nil, fmt.Errorf("读取样本池文件失败: %w", err)
		}
		var transactions []models.GantryTransaction
		if err := json.Unmarshal(data, &transactions); err != nil {
			return nil, fmt.Errorf("解析样本池文件失败: %w", err)
		}
		return transactions, nil
	}

	return nil, fmt.Errorf("样本池来源未配置")
}
