/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、样本池来源选择、分布式锁与全局服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 样本池来源（数据库或JSON文件）必须二选一配置，否则启动失败；Redis缺失降级为进程内锁
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/generation_service.go, service/pool
 */

package service

import (
	"fmt"
	"log"
	"os"

	"gantry-dgm-service/logger"
	"gantry-dgm-service/service/dgm"
	"gantry-dgm-service/service/distributed_lock"
	"gantry-dgm-service/service/models"
	"gantry-dgm-service/service/pool"
	"gantry-dgm-service/service/schedule"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                      *gorm.DB
	GlobalGenerationService *GenerationService
	GlobalScheduleService   *schedule.ScheduleService
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接；配置了POOL_JSON_PATH时允许无数据库运行
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else if os.Getenv("DB_HOST") == "" && os.Getenv("POOL_JSON_PATH") != "" {
		log.Println("未配置数据库，样本池使用JSON文件来源，运行历史不持久化")
		return
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	if DB == nil {
		return
	}
	log.Println("开始运行数据库迁移...")

	if err := DB.AutoMigrate(&models.GantryTransaction{}, &models.GenerationRun{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 样本池来源：数据库优先，其次JSON文件
	var poolLoader *pool.Loader
	if DB != nil {
		poolLoader = pool.NewLoader(DB)
	} else if jsonPath := os.Getenv("POOL_JSON_PATH"); jsonPath != "" {
		poolLoader = pool.NewJSONLoader(jsonPath)
	} else {
		log.Fatal("样本池来源未配置：需要数据库连接或POOL_JSON_PATH")
	}

	// 预言机：未配置BaseURL时仅使用规则生成
	oracle := dgm.NewHTTPOracle(dgm.LoadOracleConfigFromEnv())

	// 分布式锁：Redis不可用时降级为进程内锁
	var lock distributed_lock.DistributedLock
	redisLock, err := distributed_lock.NewRedisLock()
	if err != nil {
		log.Printf("Redis不可用，生成运行单飞保护降级为进程内锁: %v", err)
		lock = distributed_lock.NewLocalLock()
	} else {
		lock = redisLock
	}

	GlobalGenerationService = NewGenerationService(DB, poolLoader, oracle, lock)

	// 定时维护任务
	GlobalScheduleService = schedule.NewScheduleService(GlobalGenerationService)
	if err := GlobalScheduleService.Start(); err != nil {
		log.Printf("启动定时维护服务失败: %v", err)
	}

	log.Println("服务初始化完成")
}
