// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
// Секреты (токен бота, ключ OpenRouter, адрес кошелька) читаются из окружения
// и переопределяют значения из YAML-файла.
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RabbitMQURL             string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries      int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Telegram                `yaml:"telegram"`
	OpenRouter              `yaml:"openrouter"`
	Tron                    `yaml:"tron"`
	Subscription            `yaml:"subscription"`
}

// HTTPServer структура для настройки сервера (health и metrics).
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"5s"`
}

// Telegram структура с параметрами транспорта бота.
type Telegram struct {
	Token       string `yaml:"token" env:"TOKEN"`
	BotUsername string `yaml:"bot_username" env:"BOT_USERNAME"`
}

// OpenRouter структура с параметрами бэкенда чат-комплишенов.
// BackupModel используется один раз при ответе с кодом 429 от основной модели.
type OpenRouter struct {
	APIKey       string        `yaml:"api_key" env:"OPENROUTER_KEY"`
	APIURL       string        `yaml:"api_url" env-default:"https://openrouter.ai/api/v1"`
	PrimaryModel string        `yaml:"primary_model" env-default:"deepseek/deepseek-chat-v3.1:free"`
	BackupModel  string        `yaml:"backup_model" env-default:"mistralai/mistral-7b-instruct:free"`
	Timeout      time.Duration `yaml:"timeout" env-default:"40s"`
}

// Tron структура с параметрами ленты транзакций TronScan.
type Tron struct {
	WalletAddress string        `yaml:"wallet_address" env:"WALLET_ADDRESS"`
	APIURL        string        `yaml:"api_url" env-default:"https://apilist.tronscanapi.com"`
	FetchLimit    int           `yaml:"fetch_limit" env-default:"20"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

// Subscription структура с тарифом и расписанием фоновых задач.
type Subscription struct {
	PriceUSDT     int           `yaml:"price_usdt" env-default:"5"`
	FreeMessages  int           `yaml:"free_messages" env-default:"10"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"60s"`
}

// MustLoad функция для загрузки конфига, путь к файлу берётся из CONFIG_PATH
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
