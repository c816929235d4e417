package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	pkgstrings "kvcheck/pkg/platform/strings"
)

// Config is the full runtime configuration of the robot.
type Config struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string

	Sources SourcesConfig
	Queue   QueueConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Control ControlConfig
	Mail    MailConfig
	Robot   RobotConfig
}

// SourcesConfig holds the connection strings for the two relational sources.
// The strings carry credentials and must never be logged.
type SourcesConfig struct {
	Driver        string
	PayrollDSN    string // FaellesDbConnectionString
	MasterdataDSN string // DbConnectionString
}

// QueueConfig selects the work queue backend.
type QueueConfig struct {
	Backend     string // memory, postgres, redis, kafka
	Name        string
	PostgresDSN string
}

// RedisConfig mirrors the go-redis pool options we override.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the franz-go client used by the kafka queue backend.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	PollTimeout   time.Duration
}

// ControlConfig locates the control spreadsheet.
type ControlConfig struct {
	Store       string // sharepoint or dir
	SiteURL     string
	Library     string
	FileName    string
	Dir         string
	BearerToken string
}

// MailConfig configures the SMTP relay.
type MailConfig struct {
	SMTPServer string
	SMTPPort   int
	Sender     string
	Username   string
	Password   string
}

// RobotConfig carries the lifecycle limits of one robot run.
type RobotConfig struct {
	MaxRetryCount       int
	FailOnTooManyErrors bool
	MaxTaskCount        int
	CreatedBy           string
	Location            *time.Location
	PollInterval        time.Duration
	ProcessArguments    string
}

const (
	DefaultQueueName     = "per.sdloen"
	DefaultCreatedBy     = "SD-lon_robot"
	DefaultMaxRetryCount = 3
	DefaultMaxTaskCount  = 100
)

// Load reads an optional .env file and then builds Config from the
// environment. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, err
			}
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	loc, err := time.LoadLocation(getEnv("KVCHECK_TIMEZONE", "Europe/Copenhagen"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		LogLevel:    getEnv("KVCHECK_LOG_LEVEL", "info"),
		LogFormat:   getEnv("KVCHECK_LOG_FORMAT", "json"),
		MetricsAddr: getEnv("KVCHECK_METRICS_ADDR", ":9090"),
		Sources: SourcesConfig{
			Driver:        getEnv("KVCHECK_SQL_DRIVER", "sqlserver"),
			PayrollDSN:    os.Getenv("KVCHECK_PAYROLL_DSN"),
			MasterdataDSN: os.Getenv("KVCHECK_MASTERDATA_DSN"),
		},
		Queue: QueueConfig{
			Backend:     getEnv("KVCHECK_QUEUE_BACKEND", "memory"),
			Name:        getEnv("KVCHECK_QUEUE_NAME", DefaultQueueName),
			PostgresDSN: os.Getenv("KVCHECK_QUEUE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("KVCHECK_REDIS_URL"),
			PoolSize:     getEnvInt("KVCHECK_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("KVCHECK_REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  getEnvDuration("KVCHECK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("KVCHECK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("KVCHECK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       pkgstrings.SplitList(os.Getenv("KVCHECK_KAFKA_BROKERS"), ","),
			ConsumerGroup: getEnv("KVCHECK_KAFKA_GROUP", "kvcheck-notify"),
			PollTimeout:   getEnvDuration("KVCHECK_KAFKA_POLL_TIMEOUT", 5*time.Second),
		},
		Control: ControlConfig{
			Store:       getEnv("KVCHECK_CONTROL_STORE", "sharepoint"),
			SiteURL:     getEnv("KVCHECK_SHAREPOINT_SITE_URL", "https://aarhuskommune.sharepoint.com/teams/MBURPA-TestafSD-ln"),
			Library:     getEnv("KVCHECK_SHAREPOINT_LIBRARY", "Delte dokumenter"),
			FileName:    getEnv("KVCHECK_CONTROL_FILE", "Kontroltabel.xlsx"),
			Dir:         os.Getenv("KVCHECK_CONTROL_DIR"),
			BearerToken: os.Getenv("KVCHECK_SHAREPOINT_TOKEN"),
		},
		Mail: MailConfig{
			SMTPServer: getEnv("KVCHECK_SMTP_SERVER", "smtp.adm.aarhuskommune.dk"),
			SMTPPort:   getEnvInt("KVCHECK_SMTP_PORT", 25),
			Sender:     getEnv("KVCHECK_MAIL_SENDER", "robot@friend.dk"),
			Username:   os.Getenv("KVCHECK_SMTP_USERNAME"),
			Password:   os.Getenv("KVCHECK_SMTP_PASSWORD"),
		},
		Robot: RobotConfig{
			MaxRetryCount:       getEnvInt("KVCHECK_MAX_RETRY_COUNT", DefaultMaxRetryCount),
			FailOnTooManyErrors: getEnvBool("KVCHECK_FAIL_ON_TOO_MANY_ERRORS", true),
			MaxTaskCount:        getEnvInt("KVCHECK_MAX_TASK_COUNT", DefaultMaxTaskCount),
			CreatedBy:           getEnv("KVCHECK_CREATED_BY", DefaultCreatedBy),
			Location:            loc,
			PollInterval:        getEnvDuration("KVCHECK_POLL_INTERVAL", time.Minute),
			ProcessArguments:    os.Getenv("KVCHECK_PROCESS_ARGUMENTS"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
