package logrus_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stagetrack/internal/log"
	loglogrus "github.com/slok/stagetrack/internal/log/logrus"
)

func TestLogrusLogger(t *testing.T) {
	tests := map[string]struct {
		log       func(l log.Logger)
		expLevel  string
		expMsg    string
		expFields map[string]any
	}{
		"Values should be added as fields.": {
			log: func(l log.Logger) {
				l.WithValues(log.Kv{"svc": "app.Replay"}).Infof("replayed %d steps", 3)
			},
			expLevel:  "info",
			expMsg:    "replayed 3 steps",
			expFields: map[string]any{"svc": "app.Replay"},
		},
		"Context values should be merged with the logger values.": {
			log: func(l log.Logger) {
				ctx := l.SetValuesOnCtx(context.Background(), log.Kv{"run": "demo-aaaaaa"})
				ctx = l.SetValuesOnCtx(ctx, log.Kv{"script": "demo.yaml"})
				l.WithValues(log.Kv{"svc": "app.Replay"}).WithCtxValues(ctx).Warningf("step rejected")
			},
			expLevel:  "warning",
			expMsg:    "step rejected",
			expFields: map[string]any{"svc": "app.Replay", "run": "demo-aaaaaa", "script": "demo.yaml"},
		},
		"Debug should be logged on debug level.": {
			log: func(l log.Logger) {
				l.Debugf("debug")
			},
			expLevel:  "debug",
			expMsg:    "debug",
			expFields: map[string]any{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logrus.New()
			l.Out = &buf
			l.SetLevel(logrus.DebugLevel)
			l.SetFormatter(&logrus.JSONFormatter{})

			test.log(loglogrus.NewLogrus(logrus.NewEntry(l)))

			var got map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			assert.Equal(t, test.expLevel, got["level"])
			assert.Equal(t, test.expMsg, got["msg"])
			for k, v := range test.expFields {
				assert.Equal(t, v, got[k])
			}
		})
	}
}

func TestNoopLogger(t *testing.T) {
	ctx := log.Noop.SetValuesOnCtx(context.Background(), log.Kv{"a": 1})
	assert.Equal(t, log.Kv{}, log.ValuesFromCtx(ctx))
	assert.Equal(t, log.Noop, log.Noop.WithValues(log.Kv{"a": 1}))
}
