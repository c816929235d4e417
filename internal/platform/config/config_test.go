package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("KVCHECK_QUEUE_NAME", "")
	t.Setenv("KVCHECK_MAX_TASK_COUNT", "")
	t.Setenv("KVCHECK_SMTP_PORT", "")
	t.Setenv("KVCHECK_KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultQueueName, cfg.Queue.Name)
	assert.Equal(t, DefaultMaxTaskCount, cfg.Robot.MaxTaskCount)
	assert.Equal(t, DefaultMaxRetryCount, cfg.Robot.MaxRetryCount)
	assert.True(t, cfg.Robot.FailOnTooManyErrors)
	assert.Equal(t, 25, cfg.Mail.SMTPPort)
	assert.Equal(t, "Delte dokumenter", cfg.Control.Library)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "Europe/Copenhagen", cfg.Robot.Location.String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KVCHECK_QUEUE_BACKEND", "kafka")
	t.Setenv("KVCHECK_KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
	t.Setenv("KVCHECK_MAX_RETRY_COUNT", "5")
	t.Setenv("KVCHECK_FAIL_ON_TOO_MANY_ERRORS", "false")
	t.Setenv("KVCHECK_POLL_INTERVAL", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "kafka", cfg.Queue.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Robot.MaxRetryCount)
	assert.False(t, cfg.Robot.FailOnTooManyErrors)
	assert.Equal(t, 30*time.Second, cfg.Robot.PollInterval)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("KVCHECK_SMTP_PORT", "not-a-port")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Mail.SMTPPort)
}

func TestFromEnv_UnknownTimezone(t *testing.T) {
	t.Setenv("KVCHECK_TIMEZONE", "Mars/Olympus_Mons")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "robot.env")
	require.NoError(t, os.WriteFile(envFile, []byte("KVCHECK_CONTROL_FILE=Styring.xlsx\n"), 0o600))
	t.Setenv("KVCHECK_CONTROL_FILE", "")
	os.Unsetenv("KVCHECK_CONTROL_FILE")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "Styring.xlsx", cfg.Control.FileName)
}
