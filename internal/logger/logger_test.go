package logger_test

import (
	"testing"

	"github.com/PedroCamargo-dev/psp-transactions-service/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       logger.Config
		wantDebug bool
		wantErr   bool
	}{
		{name: "development defaults to debug", cfg: logger.Config{Environment: "development"}, wantDebug: true},
		{name: "production defaults to info", cfg: logger.Config{Environment: "production"}, wantDebug: false},
		{name: "explicit level wins", cfg: logger.Config{Environment: "local", Level: "warn"}, wantDebug: false},
		{name: "invalid level", cfg: logger.Config{Environment: "production", Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
