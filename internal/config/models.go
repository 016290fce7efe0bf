package config

import (
	"time"
)

// ServerConfig represents the configuration for the HTTP intake
type ServerConfig struct {
	ListenAddress  string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BodyLimit      int
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// StoreConfig represents the configuration for the risk record store
type StoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// IdentityConfig represents the configuration for credential resolution
type IdentityConfig struct {
	Provider       string
	Timeout        time.Duration
	SupabaseURL    string
	SupabaseAPIKey string
	StaticTokens   map[string]string
	CacheType      string
	CacheTTL       time.Duration
	CacheCleanup   time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

// SMTPIntakeConfig represents the configuration for the SMTP intake
type SMTPIntakeConfig struct {
	Enabled           bool
	ListenAddress     string
	Domain            string
	MaxMessageBytes   int64
	AllowInsecureAuth bool
	ProcessTimeout    time.Duration
}

// durationOr returns the configured duration, or fallback when the value is unparsable
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return fallback
	}
	return d
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:  c.GetString("server.listen_address"),
		RequestTimeout: c.durationOr("server.request_timeout", 60*time.Second),
		ReadTimeout:    c.durationOr("server.read_timeout", 30*time.Second),
		WriteTimeout:   c.durationOr("server.write_timeout", 90*time.Second),
		BodyLimit:      c.GetInt("server.body_limit"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		BaseURL:     c.GetString("openai.base_url"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		Timeout:     c.durationOr("openai.timeout", 45*time.Second),
	}
}

// GetStore returns the record store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}

// GetIdentity returns the identity provider configuration
func (c *Config) GetIdentity() IdentityConfig {
	return IdentityConfig{
		Provider:       c.GetString("identity.provider"),
		Timeout:        c.durationOr("identity.timeout", 10*time.Second),
		SupabaseURL:    c.GetString("identity.supabase.url"),
		SupabaseAPIKey: c.GetString("identity.supabase.api_key"),
		StaticTokens:   c.GetStringMapString("identity.static.tokens"),
		CacheType:      c.GetString("identity.cache.type"),
		CacheTTL:       c.durationOr("identity.cache.ttl", 5*time.Minute),
		CacheCleanup:   c.durationOr("identity.cache.cleanup_frequency", time.Minute),
		RedisAddr:      c.GetString("identity.cache.redis_addr"),
		RedisPassword:  c.GetString("identity.cache.redis_password"),
		RedisDB:        c.GetInt("identity.cache.redis_db"),
	}
}

// GetSMTPIntake returns the SMTP intake configuration
func (c *Config) GetSMTPIntake() SMTPIntakeConfig {
	return SMTPIntakeConfig{
		Enabled:           c.GetBool("intake.smtp.enabled"),
		ListenAddress:     c.GetString("intake.smtp.listen_address"),
		Domain:            c.GetString("intake.smtp.domain"),
		MaxMessageBytes:   int64(c.GetInt("intake.smtp.max_message_bytes")),
		AllowInsecureAuth: c.GetBool("intake.smtp.allow_insecure_auth"),
		ProcessTimeout:    c.durationOr("intake.smtp.process_timeout", 60*time.Second),
	}
}
