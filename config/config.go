package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит все настройки приложения
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Payments PaymentsConfig `mapstructure:"payments"`
}

// TelegramConfig содержит настройки Bot API
type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	Debug   bool   `mapstructure:"debug"`
	Timeout int    `mapstructure:"timeout"`

	// CommandTimeout ограничивает обработку одной команды
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// StorageConfig выбирает драйвер базы данных
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// PostgresConfig содержит настройки для PostgreSQL
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig содержит настройки для Redis
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UserTTL  time.Duration `mapstructure:"user_ttl"`
}

// ServerConfig содержит порты служебных серверов
type ServerConfig struct {
	HealthPort      int           `mapstructure:"health_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PaymentsConfig содержит настройки команд над платежами
type PaymentsConfig struct {
	// StrictAddCategory включает проверку категории в /add_payment.
	// По умолчанию выключено: категорию проверяет только /update_payment
	StrictAddCategory bool   `mapstructure:"strict_add_category"`
	CurrencyLabel     string `mapstructure:"currency_label"`
}

// LoadConfig загружает настройки из файла или переменных окружения
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./config", ".")
}

// LoadConfigFrom ищет config.yaml в перечисленных каталогах
func LoadConfigFrom(paths ...string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Значения по умолчанию
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Если файл конфигурации не найден, используем переменные окружения
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Проверяем наличие переменных окружения и переопределяем значения конфигурации
	loadFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Storage.Driver != DriverPostgres && config.Storage.Driver != DriverSQLite {
		return nil, errors.New("storage.driver must be postgres or sqlite, got " + strconv.Quote(config.Storage.Driver))
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.timeout", 60)
	v.SetDefault("telegram.command_timeout", 10*time.Second)

	// Storage defaults
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.sqlite_path", "payments.db")

	// PostgreSQL defaults
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.username", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "payments")
	v.SetDefault("postgres.sslmode", "disable")

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.user_ttl", 30*time.Minute)

	// Server defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Payments defaults
	v.SetDefault("payments.strict_add_category", false)
	v.SetDefault("payments.currency_label", "руб.")
}

func loadFromEnv(v *viper.Viper) {
	// Telegram from env
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		v.Set("telegram.token", token)
	}

	// PostgreSQL from env
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		v.Set("postgres.host", dbHost)
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			v.Set("postgres.port", port)
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		v.Set("postgres.username", dbUser)
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		v.Set("postgres.password", dbPassword)
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		v.Set("postgres.dbname", dbName)
	}

	// Redis from env
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := "6379" // Default Redis port
		if port := os.Getenv("REDIS_PORT"); port != "" {
			redisPort = port
		}
		v.Set("redis.addr", redisHost+":"+redisPort)
	}

	// gRPC from env
	if grpcPort := os.Getenv("GRPC_PORT"); grpcPort != "" {
		if port, err := strconv.Atoi(grpcPort); err == nil {
			v.Set("server.grpc_port", port)
		}
	}
}
