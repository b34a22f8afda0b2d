package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Gateway   GatewayConfig
	Companion CompanionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	gateway, err := loadGatewayConfig()
	if err != nil {
		return nil, err
	}

	companion, err := loadCompanionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Store: store, Gateway: gateway, Companion: companion}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr      string
	Heartbeat time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	heartbeat, err := parseDurationMsEnv("STREAM_HEARTBEAT_MS", 8*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "4000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":4000" 或 "127.0.0.1:4000"。
		return ServerConfig{Addr: port, Heartbeat: heartbeat}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, Heartbeat: heartbeat}, nil
}

// StoreConfig 描述持久化服务使用的数据库。
type StoreConfig struct {
	Enabled bool
	Type    string
	DSN     string
}

func loadStoreConfig() (StoreConfig, error) {
	enabled, err := parseBoolEnv("STORE_ENABLED", true)
	if err != nil {
		return StoreConfig{}, err
	}

	storeType := strings.ToLower(getEnvOrDefault("STORE_TYPE", "sqlite"))
	switch storeType {
	case "sqlite", "postgres":
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_TYPE value: %q", storeType)
	}

	return StoreConfig{
		Enabled: enabled,
		Type:    storeType,
		DSN:     strings.TrimSpace(os.Getenv("STORE_DSN")),
	}, nil
}

// GatewayConfig 描述聊天核心访问持久化服务的方式。
type GatewayConfig struct {
	BaseURL  string
	Timeout  time.Duration
	DemoMode bool
}

func loadGatewayConfig() (GatewayConfig, error) {
	timeout, err := parseDurationMsEnv("GATEWAY_TIMEOUT_MS", 10*time.Second)
	if err != nil {
		return GatewayConfig{}, err
	}

	demo, err := parseBoolEnv("DEMO_MODE", false)
	if err != nil {
		return GatewayConfig{}, err
	}

	return GatewayConfig{
		BaseURL:  strings.TrimRight(getEnvOrDefault("GATEWAY_BASE_URL", "http://localhost:4000/api"), "/"),
		Timeout:  timeout,
		DemoMode: demo,
	}, nil
}

// CompanionConfig 描述对话行为。
type CompanionConfig struct {
	Locale              string
	UserID              string
	Location            *time.Location
	CulturalProbability float64
	CulturalMoodMatch   bool
	ReplyDelay          time.Duration
	CrisisPromptDelay   time.Duration
}

func loadCompanionConfig() (CompanionConfig, error) {
	tz := getEnvOrDefault("COMPANION_TIMEZONE", "UTC")
	location, err := time.LoadLocation(tz)
	if err != nil {
		return CompanionConfig{}, fmt.Errorf("invalid COMPANION_TIMEZONE value %q: %w", tz, err)
	}

	probability := 0.30
	if override, err := parseOptionalFloatEnv("CULTURAL_PROBABILITY"); err != nil {
		return CompanionConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return CompanionConfig{}, fmt.Errorf("invalid CULTURAL_PROBABILITY value %v: must be within [0, 1]", *override)
		}
		probability = *override
	}

	moodMatch, err := parseBoolEnv("CULTURAL_MOOD_MATCH", false)
	if err != nil {
		return CompanionConfig{}, err
	}

	replyDelay, err := parseDurationMsEnv("REPLY_DELAY_MS", 1000*time.Millisecond)
	if err != nil {
		return CompanionConfig{}, err
	}

	crisisDelay, err := parseDurationMsEnv("CRISIS_PROMPT_DELAY_MS", 2000*time.Millisecond)
	if err != nil {
		return CompanionConfig{}, err
	}

	return CompanionConfig{
		Locale:              getEnvOrDefault("COMPANION_LOCALE", "english"),
		UserID:              getEnvOrDefault("COMPANION_USER_ID", "anon"),
		Location:            location,
		CulturalProbability: probability,
		CulturalMoodMatch:   moodMatch,
		ReplyDelay:          replyDelay,
		CrisisPromptDelay:   crisisDelay,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationMsEnv 读取以毫秒为单位的正整数，0 与负数均视为无效。
func parseDurationMsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	ms, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return defaultValue, nil
	}
	if *ms <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *ms)
	}
	return time.Duration(*ms) * time.Millisecond, nil
}
