package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds broker and consumer-group settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// LoyaltyConfig holds the engine's deployment-level knobs. Runtime-tunable
// values (minimum amount, milestones) seed the program settings row on first
// boot and are editable by admins afterwards.
type LoyaltyConfig struct {
	CycleSize                int
	MinAmountForStamp        int64
	RewardMilestones         map[int]reward.Type
	MembershipFee            int64
	MembershipDurationMonths int
	DiscountPercent          int
}

// ServiceConfig holds all configuration for the loyalty service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    DatabaseConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	Loyalty     LoyaltyConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "loyalty")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "kopitetangga.")
	v.SetDefault("LOYALTY_CYCLE_SIZE", 10)
	v.SetDefault("LOYALTY_MIN_STAMP_AMOUNT", 50000)
	v.SetDefault("LOYALTY_REWARD_MILESTONES", "5:free_drink,10:voucher_50k")
	v.SetDefault("LOYALTY_MEMBERSHIP_FEE", 25000)
	v.SetDefault("LOYALTY_MEMBERSHIP_DURATION_MONTHS", 3)
	v.SetDefault("LOYALTY_DISCOUNT_PERCENT", 10)

	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		if v.GetString("APP_ENV") == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret = "dev-secret-do-not-use"
	}

	milestones, err := reward.ParseMilestones(v.GetString("LOYALTY_REWARD_MILESTONES"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOYALTY_REWARD_MILESTONES: %w", err)
	}

	cfg := &ServiceConfig{
		Port:   ":" + strings.TrimPrefix(v.GetString("SERVICE_PORT"), ":"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{Secret: secret},
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Loyalty: LoyaltyConfig{
			CycleSize:                v.GetInt("LOYALTY_CYCLE_SIZE"),
			MinAmountForStamp:        v.GetInt64("LOYALTY_MIN_STAMP_AMOUNT"),
			RewardMilestones:         milestones,
			MembershipFee:            v.GetInt64("LOYALTY_MEMBERSHIP_FEE"),
			MembershipDurationMonths: v.GetInt("LOYALTY_MEMBERSHIP_DURATION_MONTHS"),
			DiscountPercent:          v.GetInt("LOYALTY_DISCOUNT_PERCENT"),
		},
	}

	// Reject a broken milestone configuration at boot, not on the first stamp.
	if _, err := reward.NewPolicy(cfg.Loyalty.CycleSize, cfg.Loyalty.RewardMilestones); err != nil {
		return nil, fmt.Errorf("invalid reward configuration: %w", err)
	}

	return cfg, nil
}
