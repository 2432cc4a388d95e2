package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type SettlementConfig struct {
	Env            string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer     `yaml:"http_server"`
	GRPCServer     `yaml:"grpc_server"`
	SettlementDB   `yaml:"settlement_db"`
	LogConfig      `yaml:"log_config"`
	CatalogService `yaml:"catalog_service"`
	KafkaService   `yaml:"kafka_service"`
	Settlement     `yaml:"settlement"`
}

type HTTPServer struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type SettlementDB struct {
	// Driver selects the storage back end: "postgres" or "memory".
	Driver         string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Dsn            string `yaml:"dsn" env:"DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type CatalogService struct {
	Address   string        `yaml:"address" env:"CATALOG_ADDRESS"`
	Timeout   time.Duration `yaml:"timeout" env-default:"5s"`
	CacheSize int           `yaml:"cache_size" env-default:"512"`
	// Sets is a static set id -> set name table used when Address is empty.
	Sets map[string]string `yaml:"sets"`
}

type KafkaService struct {
	Enabled bool   `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"KAFKA_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	Topic   string `yaml:"topic" env:"KAFKA_TOPIC" env-default:"trade-settlement-events"`
	// SASL is enabled when Username is set.
	Username   string `yaml:"username" env:"KAFKA_USERNAME"`
	Password   string `yaml:"password" env:"KAFKA_PASSWORD"`
	Mechanism  string `yaml:"mechanism" env:"KAFKA_MECHANISM" env-default:"PLAIN"`
	TLSEnabled bool   `yaml:"tls_enabled" env:"KAFKA_TLS_ENABLED" env-default:"false"`
}

type Settlement struct {
	ProposalTTL         time.Duration `yaml:"proposal_ttl" env-default:"24h"`
	StaleTradeAfter     time.Duration `yaml:"stale_trade_after" env-default:"72h"`
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval" env-default:"1m"`
	StaleSweepInterval  time.Duration `yaml:"stale_sweep_interval" env-default:"10m"`
	SessionCodeLength   int           `yaml:"session_code_length" env-default:"6"`
}

func MustLoad() *SettlementConfig {
	configPath := os.Getenv("SETTLEMENT_CONFIG_PATH")
	if configPath == "" {
		log.Fatalf("SETTLEMENT_CONFIG_PATH was not found\n")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}
	return cfg
}

func Load(configPath string) (*SettlementConfig, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	var cfg SettlementConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
