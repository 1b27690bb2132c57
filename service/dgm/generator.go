/*
 * @module service/dgm/generator
 * @description 管线编排器：组装分解/示例/调度/过滤/增强/校验/重加权/评估各组件，驱动三阶段生成流程
 * @architecture 领域服务层 - 编排器
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow Initialize加载样本池并学习统计 -> Generate闭环生成 -> 治理 -> 评估 -> 输出结果束
 * @rules 调度器状态由编排器互斥串行访问；取消只在两次尝试之间生效；中止的运行仍对已接受样本完成治理与评估
 * @dependencies sync, context
 * @refs service/dgm各组件, service/pool
 */

package dgm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gantry-dgm-service/service/meta"
	"gantry-dgm-service/service/models"
)

// maxAttemptsFactor 最大尝试次数 = 请求数 × 该系数
const maxAttemptsFactor = 3

// defaultDemonstrationK 缺省少样本示例条数
const defaultDemonstrationK = 3

// PoolProvider 样本池提供者：训练池供示例选择与统计学习，基准池供评估比对
type PoolProvider interface {
	LoadTraining(ctx context.Context, limit int) ([]*models.GantryRecord, error)
	LoadBenchmark(ctx context.Context, limit int) ([]*models.GantryRecord, error)
}

// GeneratorOptions 编排器可选配置
type GeneratorOptions struct {
	Workers         int      // 并行分解协程数，缺省4
	Seed            int64    // 随机种子，0表示按当前时间
	DemonstrationK  int      // 少样本示例条数
	AcceptThreshold float64  // 过滤通过阈值，0表示缺省0.8
	CustomScripts   []string // 自定义过滤规则脚本

	// OnProgress 每处理完一批样本后回调，用于对外广播进度
	OnProgress func(accepted, rejected, attempts int)
}

// Generator 管线编排器
type Generator struct {
	pools   PoolProvider
	oracle  Oracle
	options GeneratorOptions

	mu          sync.Mutex
	initialized bool
	schema      *FieldGroupSchema
	stats       *models.LearnedStatistics
	comparator  *BenchmarkComparator
	selector    *DemonstrationSelector
	decomposer  *Decomposer
	filter      *SampleFilter
	enhancer    *LabelEnhancer
	verifier    AuxiliaryVerifier

	trainingSize  int
	benchmarkSize int
	lastRun       *models.GenerateStatistics
	lastSnapshot  *DistributionStats

	// 上次成功初始化的参数，供定时池刷新原样重放
	lastTrainingLimit  int
	lastBenchmarkLimit int
	lastUseAuxiliary   bool
}

// NewGenerator 创建编排器
func NewGenerator(pools PoolProvider, oracle Oracle, options GeneratorOptions) *Generator {
	if options.Workers <= 0 {
		options.Workers = 4
	}
	if options.Seed == 0 {
		options.Seed = time.Now().UnixNano()
	}
	if options.DemonstrationK <= 0 {
		options.DemonstrationK = defaultDemonstrationK
	}
	return &Generator{
		pools:   pools,
		oracle:  oracle,
		options: options,
	}
}

// Initialize 加载样本池、校验字段组模式并学习统计，配置问题在此一次性暴露
func (g *Generator) Initialize(ctx context.Context, trainingLimit, benchmarkLimit int, useAuxiliary bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	schema, err := NewFieldGroupSchema(meta.GantryFieldGroups)
	if err != nil {
		return err
	}

	training, err := g.pools.LoadTraining(ctx, trainingLimit)
	if err != nil {
		return fmt.Errorf("加载训练样本池失败: %w", err)
	}
	if len(training) == 0 {
		return NewConfigError("training_pool", "训练样本池为空，无法初始化")
	}
	benchmark, err := g.pools.LoadBenchmark(ctx, benchmarkLimit)
	if err != nil {
		return fmt.Errorf("加载基准样本池失败: %w", err)
	}

	g.schema = schema
	g.stats = LearnStatistics(training)
	g.comparator = NewBenchmarkComparator(benchmark)
	g.selector = NewDemonstrationSelector(training, g.options.Seed)
	g.decomposer = NewDecomposer(schema, g.oracle, g.options.Seed)
	g.filter = NewSampleFilter(g.stats, g.options.AcceptThreshold)
	for _, script := range g.options.CustomScripts {
		g.filter.AddCustomScript(script)
	}
	g.enhancer = NewLabelEnhancer()
	if useAuxiliary {
		g.verifier = NewRuleVerifier()
	} else {
		g.verifier = nil
	}
	g.trainingSize = len(training)
	g.benchmarkSize = len(benchmark)
	g.lastTrainingLimit = trainingLimit
	g.lastBenchmarkLimit = benchmarkLimit
	g.lastUseAuxiliary = useAuxiliary
	g.initialized = true

	slog.Info("生成器初始化完成",
		"training_pool", len(training),
		"benchmark_pool", len(benchmark),
		"oracle_available", g.oracle != nil && g.oracle.Available(),
		"auxiliary_verifier", useAuxiliary)
	return nil
}

// RefreshPools 按上次成功初始化的参数重新加载样本池并重学统计
func (g *Generator) RefreshPools(ctx context.Context) error {
	g.mu.Lock()
	if !g.initialized {
		g.mu.Unlock()
		return ErrNotInitialized
	}
	trainingLimit := g.lastTrainingLimit
	benchmarkLimit := g.lastBenchmarkLimit
	useAuxiliary := g.lastUseAuxiliary
	g.mu.Unlock()
	return g.Initialize(ctx, trainingLimit, benchmarkLimit, useAuxiliary)
}

// Generate 闭环生成count条样本并完成治理与评估。
// 上下文取消只在两次尝试之间生效，中止的运行对已接受样本照常产出完整结果束。
// 组件引用在入口处一次性快照：运行期间的重新初始化只影响后续运行，本次运行始终使用同一套统计与样本池。
func (g *Generator) Generate(ctx context.Context, count int, targets models.TargetDistribution) (*models.GenerateResult, error) {
	g.mu.Lock()
	if !g.initialized {
		g.mu.Unlock()
		return nil, ErrNotInitialized
	}
	learned := g.stats
	comparator := g.comparator
	selector := g.selector
	decomposer := g.decomposer
	filter := g.filter
	enhancer := g.enhancer
	verifier := g.verifier
	g.mu.Unlock()

	if count <= 0 {
		return nil, fmt.Errorf("生成数量必须为正: %d", count)
	}

	startTime := time.Now()
	defer func() {
		metricRunDuration.Observe(time.Since(startTime).Seconds())
	}()

	scheduler := NewScheduler(targets, g.options.Seed)
	var accepted, rejected []*models.GantryRecord
	stats := models.GenerateStatistics{Requested: count}

	for len(accepted) < count && stats.Attempts < count*maxAttemptsFactor {
		if ctx.Err() != nil {
			stats.Aborted = true
			slog.Warn("生成运行被取消，对已接受样本继续完成治理与评估",
				"accepted", len(accepted), "requested", count)
			break
		}

		batch := g.options.Workers
		if remaining := count - len(accepted); remaining < batch {
			batch = remaining
		}
		raw := g.decomposeBatch(ctx, scheduler, selector, decomposer, batch)
		stats.Attempts += batch
		stats.RawCount += len(raw)

		for _, record := range raw {
			score, issues := filter.Evaluate(record)
			record.Meta.QualityScore = score
			record.Meta.ValidationIssues = issues
			metricAttempts.Inc()

			ok := score >= filter.Threshold()
			if ok {
				record = enhancer.Enhance(record)
				if verifier != nil {
					pass, reason, err := verifier.Verify(ctx, record)
					if err != nil {
						slog.Warn("辅助校验器执行失败，样本降级为拒绝", "error", err)
						pass = false
						reason = "verifier_error"
					}
					if !pass {
						record.Meta.ValidationIssues = append(record.Meta.ValidationIssues, "aux:"+reason)
						ok = false
					}
				}
			}

			scheduler.Update(record, ok)
			if ok {
				accepted = append(accepted, record)
				metricAccepted.Inc()
			} else {
				rejected = append(rejected, record)
				metricRejected.Inc()
			}
		}

		if g.options.OnProgress != nil {
			g.options.OnProgress(len(accepted), len(rejected), stats.Attempts)
		}
	}

	stats.AcceptedCount = len(accepted)
	stats.RejectedCount = len(rejected)
	stats.FinalCount = len(accepted)
	for _, r := range accepted {
		repaired := false
		for _, c := range r.Meta.CorrectionLog {
			if c.Reason == CorrectionReasonFallback {
				stats.FallbackCount++
			} else {
				repaired = true
			}
		}
		if repaired {
			stats.RecoveredCount++
		}
	}

	weighter := NewReweighter(learned)
	weighted, tiers := weighter.Reweight(accepted)

	directEval := NewDirectEvaluator(learned, comparator, scheduler.Targets())
	indirectEval := NewIndirectEvaluator(comparator)
	evaluation := models.EvaluationResult{
		Direct:   directEval.Evaluate(accepted),
		Indirect: indirectEval.Evaluate(accepted),
	}

	snapshot := scheduler.Snapshot()
	g.mu.Lock()
	g.lastRun = &stats
	g.lastSnapshot = &snapshot
	g.mu.Unlock()

	if len(accepted) < count {
		slog.Warn("生成数量未达到请求值",
			"requested", count, "delivered", len(accepted), "attempts", stats.Attempts)
	}
	slog.Info("生成运行完成",
		"requested", count,
		"delivered", len(accepted),
		"rejected", len(rejected),
		"fallbacks", stats.FallbackCount,
		"faithfulness", evaluation.Direct.Faithfulness,
		"diversity", evaluation.Direct.Diversity,
		"duration_ms", time.Since(startTime).Milliseconds())

	return &models.GenerateResult{
		Samples:         accepted,
		WeightedSamples: weighted,
		QualityTiers:    tiers,
		Evaluation:      evaluation,
		Statistics:      stats,
	}, nil
}

// decomposeBatch 并行分解一批样本，条件产出与示例选择串行完成；
// 组件由调用方在入口快照后传入，批内不再读取可被重新初始化替换的字段
func (g *Generator) decomposeBatch(ctx context.Context, scheduler *Scheduler, selector *DemonstrationSelector, decomposer *Decomposer, batch int) []*models.GantryRecord {
	type job struct {
		cond  models.GenerationCondition
		demos []*models.GantryRecord
	}
	jobs := make([]job, batch)
	for i := 0; i < batch; i++ {
		cond := scheduler.NextCondition()
		jobs[i] = job{cond: cond, demos: selector.Select(cond, g.options.DemonstrationK)}
	}

	results := make([]*models.GantryRecord, batch)
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record, err := decomposer.Decompose(ctx, jobs[i].cond, jobs[i].demos)
			if err != nil {
				slog.Debug("样本分解中断", "error", err)
				return
			}
			for _, c := range record.Meta.CorrectionLog {
				if c.Reason == CorrectionReasonFallback {
					metricFallbacks.Inc()
				}
			}
			results[i] = record
		}(i)
	}
	wg.Wait()

	raw := make([]*models.GantryRecord, 0, batch)
	for _, r := range results {
		if r != nil {
			raw = append(raw, r)
		}
	}
	return raw
}

// GeneratorStatus 生成器状态
type GeneratorStatus struct {
	Initialized     bool                       `json:"initialized"`
	OracleAvailable bool                       `json:"oracle_available"`
	TrainingPool    int                        `json:"training_pool"`
	BenchmarkPool   int                        `json:"benchmark_pool"`
	LastRun         *models.GenerateStatistics `json:"last_run,omitempty"`
	Distribution    *DistributionStats         `json:"distribution,omitempty"`
}

// Status 当前状态快照
func (g *Generator) Status() GeneratorStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GeneratorStatus{
		Initialized:     g.initialized,
		OracleAvailable: g.oracle != nil && g.oracle.Available(),
		TrainingPool:    g.trainingSize,
		BenchmarkPool:   g.benchmarkSize,
		LastRun:         g.lastRun,
		Distribution:    g.lastSnapshot,
	}
}
