// Package config provides the structures and loader for the application
// configuration, read from a YAML file pointed to by CONFIG_PATH.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level configuration shared by every process.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	Timezone                string `yaml:"timezone" env-default:"Asia/Kuala_Lumpur"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Telegram                `yaml:"telegram"`
	ToyyibPay               `yaml:"toyyibpay"`
	Premium                 `yaml:"premium"`
}

// HTTPServer holds the HTTP server settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection holds the redis connection settings.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"5s"`
}

// RabbitMQ holds the message broker connection settings.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
	RabbitMQPrefetch   int           `yaml:"rabbitmq_prefetch" env-default:"10"`
}

// Telegram holds the bot credentials.
type Telegram struct {
	BotToken    string `yaml:"bot_token" env:"BOT_TOKEN"`
	BotUsername string `yaml:"bot_username"`
}

// ToyyibPay holds the payment gateway credentials. AppBaseURL is the public
// host toyyibpay calls back to, without scheme.
type ToyyibPay struct {
	SecretKey    string `yaml:"secret_key" env:"TOYYIBPAY_SECRET_KEY"`
	CategoryCode string `yaml:"category_code" env:"TOYYIBPAY_CATEGORY_CODE"`
	AppBaseURL   string `yaml:"app_base_url"`
}

// Premium holds the subscription pricing and the free-tier quota.
type Premium struct {
	PriceRM              string `yaml:"price_rm" env-default:"5.00"`
	DurationDays         int    `yaml:"duration_days" env-default:"30"`
	FreeTransactionLimit int    `yaml:"free_transaction_limit" env-default:"100"`
}

// MustLoad reads the configuration from CONFIG_PATH and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
