/*
 * @module service/dgm/oracle
 * @description 文本生成预言机接口与OpenAI兼容chat-completions HTTP客户端实现
 * @architecture 外部服务客户端模式 - 接口抽象+HTTP实现，便于测试替换
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 环境变量配置 -> 创建客户端 -> 按字段组发起补全请求 -> 解析JSON片段
 * @rules 预言机任何失败（超时、非200、响应不可解析）都返回错误交由分解器回退，不在此层重试
 * @dependencies net/http, encoding/json
 * @refs service/dgm/decomposer.go
 */

package dgm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Oracle 文本生成预言机：给定提示词返回文本补全
type Oracle interface {
	// Complete 执行一次文本补全，失败返回错误由调用方决定回退策略
	Complete(ctx context.Context, prompt string) (string, error)
	// Available 预言机是否已配置可用
	Available() bool
}

// OracleConfig 预言机配置
type OracleConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// LoadOracleConfigFromEnv 从环境变量加载预言机配置，未配置BaseURL表示仅使用规则生成
func LoadOracleConfigFromEnv() OracleConfig {
	timeout := 30 * time.Second
	if v := os.Getenv("ORACLE_TIMEOUT"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}
	return OracleConfig{
		BaseURL: os.Getenv("ORACLE_BASE_URL"),
		Model:   getEnvWithDefault("ORACLE_MODEL", "qwen-turbo"),
		APIKey:  os.Getenv("ORACLE_API_KEY"),
		Timeout: timeout,
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTPOracle OpenAI兼容chat-completions接口的预言机客户端
type HTTPOracle struct {
	config OracleConfig
	client *http.Client
}

// NewHTTPOracle 创建HTTP预言机客户端
func NewHTTPOracle(config OracleConfig) *HTTPOracle {
	return &HTTPOracle{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Available BaseURL已配置即认为可用
func (o *HTTPOracle) Available() bool {
	return o != nil && o.config.BaseURL != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete 调用chat-completions接口获取补全文本
func (o *HTTPOracle) Complete(ctx context.Context, prompt string) (string, error) {
	if !o.Available() {
		return "", ErrOracleUnavailable
	}

	reqBody := chatCompletionRequest{
		Model: o.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "你是高速公路门架交易数据生成助手，只输出JSON，不输出任何解释文字。"},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化预言机请求失败: %w", err)
	}

	url := strings.TrimRight(o.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("创建预言机请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

	startTime := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("预言机请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取预言机响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("预言机返回状态码 %d: %s", resp.StatusCode, truncateForLog(string(body), 256))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("解析预言机响应失败: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("预言机返回错误: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("预言机响应不含choices")
	}

	slog.Debug("预言机补全完成",
		"duration_ms", time.Since(startTime).Milliseconds(),
		"prompt_len", len(prompt))
	return completion.Choices[0].Message.Content, nil
}

// ExtractJSONObject 从补全文本中提取第一个JSON对象片段（容忍```json围栏和前后解释文字）
func ExtractJSONObject(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	if start < 0 {
		return "", fmt.Errorf("补全文本中未找到JSON对象")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return cleaned[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("补全文本中JSON对象未闭合")
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
