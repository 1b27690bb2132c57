/*
 * @module api/controllers/generator_controller
 * @description 数据生成控制器，提供生成器初始化、生成运行触发、状态与运行历史查询API
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；生成运行互斥时返回409
 * @dependencies gantry-dgm-service/service, github.com/go-chi/render
 * @refs service/generation_service.go
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"gantry-dgm-service/service"
	"gantry-dgm-service/service/dgm"
	"gantry-dgm-service/service/distributed_lock"
	"gantry-dgm-service/service/models"

	"github.com/go-chi/render"
)

// GeneratorController 数据生成控制器
type GeneratorController struct {
	generationService *service.GenerationService
}

// NewGeneratorController 创建数据生成控制器实例
func NewGeneratorController(generationService *service.GenerationService) *GeneratorController {
	return &GeneratorController{
		generationService: generationService,
	}
}

// InitializeRequest 初始化请求参数
type InitializeRequest struct {
	TrainingLimit  int  `json:"training_limit" example:"1000"`
	BenchmarkLimit int  `json:"benchmark_limit" example:"500"`
	UseAuxiliary   bool `json:"use_auxiliary" example:"true"`
}

// GenerateRequest 生成请求参数
type GenerateRequest struct {
	Count              int                       `json:"count" example:"100"`
	TargetDistribution models.TargetDistribution `json:"target_distribution,omitempty"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	RunID  string                 `json:"run_id"`
	Result *models.GenerateResult `json:"result"`
}

// Initialize 初始化生成器
// @Summary 初始化生成器
// @Description 加载训练/基准样本池并学习统计信息，必须在生成前调用
// @Tags 数据生成
// @Accept json
// @Produce json
// @Param request body InitializeRequest true "初始化参数"
// @Success 200 {object} APIResponse "初始化成功"
// @Failure 400 {object} APIResponse "配置错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dgm/initialize [post]
func (c *GeneratorController) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if err := c.generationService.Initialize(r.Context(), req.TrainingLimit, req.BenchmarkLimit, req.UseAuxiliary); err != nil {
		status := http.StatusInternalServerError
		if dgm.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		render.JSON(w, r, APIResponse{
			Status: status,
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: 0,
		Msg:    "生成器初始化成功",
	})
}

// Generate 触发一次生成运行
// @Summary 触发生成运行
// @Description 闭环生成指定数量的门架交易样本，返回治理与评估后的完整结果束
// @Tags 数据生成
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "生成参数"
// @Success 200 {object} APIResponse{data=GenerateResponse} "生成成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 409 {object} APIResponse "已有生成运行在执行"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dgm/generate [post]
func (c *GeneratorController) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}
	if req.Count <= 0 {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "生成数量必须为正",
		})
		return
	}

	result, runID, err := c.generationService.Generate(r.Context(), req.Count, req.TargetDistribution)
	if err != nil {
		if errors.Is(err, distributed_lock.ErrLockHeld) {
			render.JSON(w, r, APIResponse{
				Status: http.StatusConflict,
				Msg:    "已有生成运行在执行中，请稍后重试",
			})
			return
		}
		if errors.Is(err, dgm.ErrNotInitialized) {
			render.JSON(w, r, APIResponse{
				Status: http.StatusBadRequest,
				Msg:    err.Error(),
			})
			return
		}
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "生成运行失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: 0,
		Msg:    "生成运行完成",
		Data:   GenerateResponse{RunID: runID, Result: result},
	})
}

// Status 查询生成器状态
// @Summary 查询生成器状态
// @Description 返回初始化状态、样本池规模、预言机可用性与最近一次运行的统计
// @Tags 数据生成
// @Produce json
// @Success 200 {object} APIResponse "查询成功"
// @Router /dgm/status [get]
func (c *GeneratorController) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, APIResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   c.generationService.Status(),
	})
}

// Runs 查询运行历史
// @Summary 查询运行历史
// @Description 按开始时间倒序返回最近的生成运行记录
// @Tags 数据生成
// @Produce json
// @Param limit query int false "返回条数" default(20)
// @Success 200 {object} APIResponse{data=[]models.GenerationRun} "查询成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dgm/runs [get]
func (c *GeneratorController) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := c.generationService.RecentRuns(limit)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "查询运行历史失败",
		})
		return
	}
	render.JSON(w, r, APIResponse{
		Status: 0,
		Msg:    "查询成功",
		Data:   runs,
	})
}
