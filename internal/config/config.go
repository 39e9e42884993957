package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Ollama     OpenAIConfig     `mapstructure:"ollama"`
	Doubao     DoubaoConfig     `mapstructure:"doubao"`
	Qwen       QwenConfig       `mapstructure:"qwen"`
	Generation GenerationConfig `mapstructure:"generation"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Progress   ProgressConfig   `mapstructure:"progress"`
	Client     ClientConfig     `mapstructure:"client"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// ModelConfig 选择生成引擎: openai | ollama | doubao | qwen
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
}

// OpenAIConfig 同时用于 OpenAI 和 Ollama（OpenAI 兼容接口）
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type DoubaoConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type GenerationConfig struct {
	// 为空时使用 model.DefaultSystemInstruction
	SystemPrompt string  `mapstructure:"system_prompt"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float32 `mapstructure:"temperature"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// NarrationEntry 一条定时旁白
type NarrationEntry struct {
	Delay time.Duration `mapstructure:"delay"`
	Text  string        `mapstructure:"text"`
}

type ProgressConfig struct {
	// 累计文本长度超过该值后认为生成已"可见地开始"
	DraftingThreshold int              `mapstructure:"drafting_threshold"`
	CollapseDelay     time.Duration    `mapstructure:"collapse_delay"`
	Narration         []NarrationEntry `mapstructure:"narration"`
}

type ClientConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	OutputDir      string `mapstructure:"output_dir"`
	PreviewAddress string `mapstructure:"preview_address"`
}

var cfg *Config

// DefaultNarration 默认旁白序列，%s 为用户提示词
var DefaultNarration = []NarrationEntry{
	{Delay: 300 * time.Millisecond, Text: "Analyzing your prompt..."},
	{Delay: 1800 * time.Millisecond, Text: `Understanding requirements for "%s"`},
	{Delay: 3200 * time.Millisecond, Text: "Deciding on component structure..."},
	{Delay: 5 * time.Second, Text: "Scaffolding main layout..."},
	{Delay: 7500 * time.Millisecond, Text: "Generating frontend code..."},
	{Delay: 10 * time.Second, Text: "Adding styles and interactions..."},
	{Delay: 13 * time.Second, Text: "Optimizing and polishing..."},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", 30*time.Second)
	// 流式响应时间不可预知，写超时默认关闭
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("model.provider", "ollama")
	v.SetDefault("ollama.base_url", "http://localhost:11434/v1")
	v.SetDefault("ollama.model", "glm-4.7:cloud")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 8192)
	v.SetDefault("qwen.temperature", 0.7)
	v.SetDefault("qwen.top_p", 0.9)
	v.SetDefault("qwen.timeout", 5*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("progress.drafting_threshold", 50)
	v.SetDefault("progress.collapse_delay", 800*time.Millisecond)

	v.SetDefault("client.server_url", "http://localhost:5001/api")
	v.SetDefault("client.output_dir", ".")
}

// Load 读取配置文件；configPath 为空或文件不存在时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, err
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		c.Doubao.APIKey = os.Getenv("ARK_API_KEY")
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	if len(c.Progress.Narration) == 0 {
		c.Progress.Narration = append([]NarrationEntry(nil), DefaultNarration...)
	}

	cfg = c
	return c, nil
}

func Get() *Config {
	return cfg
}
