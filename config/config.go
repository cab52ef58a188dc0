// Package config loads the engine configuration from environment
// variables (via .env when present) and an optional YAML scoring weights
// file.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"kabu-agent/analysis"
	"kabu-agent/pipeline"
)

// Config holds application configuration
type Config struct {
	ServerPort int

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Pipeline configuration
	Pipeline PipelineConfig

	// Agent configuration (scoring/classification/planning)
	Agent AgentConfig

	// Cron expression for the scheduled daily run; empty disables the scheduler
	PipelineSchedule string

	// Optional YAML file overriding the scoring weight table
	WeightsFile string
}

// PipelineConfig holds run orchestration parameters
type PipelineConfig struct {
	Concurrency    int
	RunTimeout     time.Duration
	MaxFailureRate float64 // fraction of per-stock failures tolerated before the run fails
	StockRetries   int     // extra attempts per stock on a data source failure
}

// AgentConfig holds the tunable scoring and risk parameters
type AgentConfig struct {
	BuyThreshold      float64
	SellThreshold     float64
	TechnicalWeight   float64
	FundamentalWeight float64

	Capital            float64
	RiskPerTradePct    float64
	MinRiskReward      float64
	DefaultStopLossPct float64
	MarketOrderScore   float64
	LotSize            int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8000),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "kabu_agent"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "kabu"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "kabu123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Pipeline: PipelineConfig{
			Concurrency:    getEnvInt("PIPELINE_CONCURRENCY", 4),
			RunTimeout:     time.Duration(getEnvInt("PIPELINE_TIMEOUT_MINUTES", 10)) * time.Minute,
			MaxFailureRate: getEnvFloat("PIPELINE_MAX_FAILURE_RATE", 0.5),
			StockRetries:   getEnvInt("PIPELINE_STOCK_RETRIES", 2),
		},

		Agent: AgentConfig{
			BuyThreshold:      getEnvFloat("AGENT_BUY_THRESHOLD", 70.0),
			SellThreshold:     getEnvFloat("AGENT_SELL_THRESHOLD", 30.0),
			TechnicalWeight:   getEnvFloat("AGENT_TECHNICAL_WEIGHT", 0.6),
			FundamentalWeight: getEnvFloat("AGENT_FUNDAMENTAL_WEIGHT", 0.4),

			Capital:            getEnvFloat("AGENT_CAPITAL", 1_000_000),
			RiskPerTradePct:    getEnvFloat("AGENT_RISK_PER_TRADE_PCT", 0.01),
			MinRiskReward:      getEnvFloat("AGENT_MIN_RISK_REWARD", 1.0),
			DefaultStopLossPct: getEnvFloat("AGENT_DEFAULT_STOP_LOSS_PCT", 0.05),
			MarketOrderScore:   getEnvFloat("AGENT_MARKET_ORDER_SCORE", 80.0),
			LotSize:            getEnvInt("AGENT_LOT_SIZE", 100),
		},

		PipelineSchedule: getEnvOrDefault("PIPELINE_SCHEDULE", ""),
		WeightsFile:      getEnvOrDefault("SCORING_WEIGHTS_FILE", ""),
	}
}

// BuildPipelineConfig assembles the full pipeline.Config from the loaded
// environment plus the optional YAML weight table. Validation of the
// result is the orchestrator's job.
func (c *Config) BuildPipelineConfig() (pipeline.Config, error) {
	scoring := analysis.DefaultScoringConfig()
	if c.WeightsFile != "" {
		loaded, err := LoadScoringWeights(c.WeightsFile)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("loading scoring weights: %w", err)
		}
		scoring = loaded
	}
	scoring.TechnicalWeight = c.Agent.TechnicalWeight
	scoring.FundamentalWeight = c.Agent.FundamentalWeight

	planner := analysis.DefaultPlannerConfig()
	planner.Capital = c.Agent.Capital
	planner.RiskPerTradePct = c.Agent.RiskPerTradePct
	planner.MinRiskReward = c.Agent.MinRiskReward
	planner.DefaultStopLossPct = c.Agent.DefaultStopLossPct
	planner.MarketOrderScore = c.Agent.MarketOrderScore
	planner.LotSize = c.Agent.LotSize

	return pipeline.Config{
		Concurrency:    c.Pipeline.Concurrency,
		RunTimeout:     c.Pipeline.RunTimeout,
		MaxFailureRate: c.Pipeline.MaxFailureRate,
		StockRetries:   c.Pipeline.StockRetries,
		Scoring:        scoring,
		Classifier: analysis.ClassifierConfig{
			BuyThreshold:  c.Agent.BuyThreshold,
			SellThreshold: c.Agent.SellThreshold,
		},
		Planner: planner,
	}, nil
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
