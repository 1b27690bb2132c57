/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"gantry-dgm-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存sqlite测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.GantryTransaction{},
		&models.GenerationRun{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"gantry_transactions",
		"generation_runs",
	}
	for _, table := range tables {
		tdb.DB.Exec("DELETE FROM " + table)
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if sqlDB, err := tdb.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// SeedGantryTransactions 写入n条可通过过滤检查的门架交易记录
// 偶数位为客车、奇数位为货车，交易时间按小时错开
func (tdb *TestDB) SeedGantryTransactions(n int) []models.GantryTransaction {
	base := time.Date(2023, 2, 20, 8, 0, 0, 0, time.UTC)
	transactions := make([]models.GantryTransaction, 0, n)
	for i := 0; i < n; i++ {
		tx := MakeGantryTransaction(i, base.Add(time.Duration(i)*time.Hour))
		if err := tdb.DB.Create(&tx).Error; err != nil {
			panic(fmt.Sprintf("failed to seed gantry transaction: %v", err))
		}
		transactions = append(transactions, tx)
	}
	return transactions
}

// MakeGantryTransaction 构造一条字段自洽的门架交易记录
func MakeGantryTransaction(seq int, transactionTime time.Time) models.GantryTransaction {
	gantryID := "S001053001000210010"
	mileage := 20000 + seq*1000

	vehicleType := "1"
	axleCount := "2"
	weight := 2500
	payFee := int(float64(mileage) / 1000 * 0.45 * 100)
	if seq%2 == 1 {
		vehicleType = "13"
		axleCount = "3"
		weight = 20000
		payFee = int(float64(mileage) / 1000 * (0.45*0.8 + 1.15*0.2) * 100)
	}

	return models.GantryTransaction{
		GantryTransactionID: fmt.Sprintf("%s%s%04d", gantryID, transactionTime.Format("20060102150405"), seq),
		PassID:              fmt.Sprintf("01%s%06d", transactionTime.Format("20060102"), seq),
		GantryID:            gantryID,
		SectionID:           "S0010530010",
		SectionName:         "彝良至昭通高速",
		TransactionTime:     transactionTime.Format("2006-01-02T15:04:05"),
		EntranceTime:        transactionTime.Add(-2 * time.Hour).Format("2006-01-02T15:04:05"),
		VehicleType:         vehicleType,
		AxleCount:           axleCount,
		TotalWeight:         weight,
		VehicleSign:         "0",
		GantryType:          "1",
		MediaType:           "1",
		TransactionType:     "9",
		PassState:           "1",
		CPUCardType:         "",
		PayFee:              payFee,
		DiscountFee:         payFee / 20,
		FeeMileage:          mileage,
	}
}
