package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"` // lifetime of presigned media URLs
}

// JWTConfig holds the settings used to verify tokens issued by the identity provider.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"` // empty accepts any issuer
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	JSON   bool   `mapstructure:"json"`
	File   string `mapstructure:"file"`   // empty writes to stdout only
	Stdout bool   `mapstructure:"stdout"` // also write to stdout when File is set
}

// KafkaConfig configures event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	WorkoutTopic    string   `mapstructure:"workout_topic"`
	AssignmentTopic string   `mapstructure:"assignment_topic"`
}

type SessionConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	CaloriesPerMinute float64       `mapstructure:"calories_per_minute"`
	// LookupTimeout bounds the background benchmark and media lookups of a session.
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
}

type CacheConfig struct {
	SizeMB int           `mapstructure:"size_mb"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// LoadConfig reads configuration from path/config.yaml, overlaid by environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// Env vars and defaults are enough.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	// KAFKA_BROKERS arrives as one comma separated string.
	if len(config.Kafka.Brokers) == 1 && strings.Contains(config.Kafka.Brokers[0], ",") {
		config.Kafka.Brokers = strings.Split(config.Kafka.Brokers[0], ",")
	}
	return config, nil
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fitness_tracker")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.url_expiry", "1h")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.stdout", true)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.workout_topic", "workout.finished")
	v.SetDefault("kafka.assignment_topic", "assignment.completed")
	v.SetDefault("session.tick_interval", "1s")
	v.SetDefault("session.calories_per_minute", 6.0)
	v.SetDefault("session.lookup_timeout", "10s")
	v.SetDefault("cache.size_mb", 16)
	v.SetDefault("cache.ttl", "5m")
}
