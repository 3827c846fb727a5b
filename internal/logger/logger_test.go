package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/webpanel/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.LoggingConfig
		wantErr bool
		check   func(t *testing.T, logger *logrus.Logger)
	}{
		{
			name:   "json format stdout",
			config: &config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			check: func(t *testing.T, logger *logrus.Logger) {
				assert.Equal(t, logrus.InfoLevel, logger.Level)
				_, ok := logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok)
				assert.Equal(t, os.Stdout, logger.Out)
			},
		},
		{
			name:   "text format stderr",
			config: &config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"},
			check: func(t *testing.T, logger *logrus.Logger) {
				assert.Equal(t, logrus.DebugLevel, logger.Level)
				_, ok := logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok)
			},
		},
		{
			name: "rotated file output",
			config: &config.LoggingConfig{
				Level:      "warn",
				Format:     "json",
				Output:     filepath.Join(t.TempDir(), "logs", "webpanel.log"),
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     7,
			},
			check: func(t *testing.T, logger *logrus.Logger) {
				assert.Equal(t, logrus.WarnLevel, logger.Level)
				assert.NotEqual(t, os.Stdout, logger.Out)
			},
		},
		{
			name:    "invalid level",
			config:  &config.LoggingConfig{Level: "chatty", Format: "json", Output: "stdout"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, logger)
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	WithComponent(logger, "panel").Info("created")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "webpanel", line["service"])
	assert.Equal(t, "panel", line["component"])
	assert.Equal(t, "created", line["msg"])
}

func TestLogrusAdapter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	l := ForComponent(logger, "bridge").WithField("type", "openExternal").WithError(assert.AnError)
	l.Warnf("open failed for %s", "https://example.com")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "open failed for https://example.com", entry.Message)
	assert.Equal(t, "bridge", entry.Data["component"])
	assert.Equal(t, "openExternal", entry.Data["type"])
	assert.Equal(t, assert.AnError, entry.Data[logrus.ErrorKey])

	l.WithFields(map[string]interface{}{"a": 1}).Debug("debug")
	assert.Equal(t, 1, hook.LastEntry().Data["a"])
}

func TestWithWebview(t *testing.T) {
	logger, hook := test.NewNullLogger()
	WithWebview(NewLogrusAdapter(logrus.NewEntry(logger)), "panel", "p1").Info("x")
	assert.Equal(t, "panel", hook.LastEntry().Data["webview_kind"])
	assert.Equal(t, "p1", hook.LastEntry().Data["webview_id"])
}

func TestNullLogger(t *testing.T) {
	l := NewNullLogger()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").WithError(assert.AnError).WithFields(nil).Error("ignored")
		l.Infof("%d", 1)
	})
	assert.Equal(t, l, OrNull(l))
	assert.IsType(t, &NullLogger{}, OrNull(nil))
}
