package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ncobase/docmapper/ctxutil"
	"github.com/ncobase/docmapper/logging/logger/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLoggerContextFields(t *testing.T) {
	l := NewLogger()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetVersion("1.2.3")

	ctx := ctxutil.SetTraceID(context.Background(), "trace-1")
	l.Info(ctx, "hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "trace-1", line[ctxutil.TraceIDKey])
	assert.Equal(t, "1.2.3", line[VersionKey])
}

func TestLoggerInitLevelAndFormat(t *testing.T) {
	l := NewLogger()
	cleanup, err := l.Init(&config.Config{Level: int(logrus.WarnLevel), Format: "json", Output: "stdout"})
	require.NoError(t, err)
	defer cleanup()

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	l.Warnf(context.Background(), "kept %d", 1)
	assert.Equal(t, "kept 1", decodeLine(t, &buf)["msg"])
}

func TestLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l := NewLogger()
	cleanup, err := l.Init(&config.Config{Level: int(logrus.InfoLevel), Format: "json", Output: "file", OutputFile: path})
	require.NoError(t, err)

	l.Info(context.Background(), "to file")
	cleanup()

	assert.FileExists(t, logFileName(path, time.Now()))
}

func TestDesensitizer(t *testing.T) {
	d := NewDesensitizer(config.DefaultDesensitization())

	filter := bson.D{
		{Key: "name", Value: "alice"},
		{Key: "password", Value: "hunter2"},
		{Key: "$or", Value: bson.A{bson.M{"api_key": "k"}, bson.M{"age": 3}}},
	}
	got := d.Desensitize(filter).(bson.D)

	assert.Equal(t, "alice", got[0].Value)
	assert.Equal(t, "******", got[1].Value)
	or := got[2].Value.(bson.A)
	assert.Equal(t, "******", or[0].(bson.M)["api_key"])
	assert.Equal(t, 3, or[1].(bson.M)["age"])

	// the input is not modified
	assert.Equal(t, "hunter2", filter[1].Value)
}

func TestDesensitizeHook(t *testing.T) {
	l := NewLogger()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	_, err := l.Init(&config.Config{Level: int(logrus.InfoLevel), Format: "json", Desensitization: config.DefaultDesensitization()})
	require.NoError(t, err)
	l.SetOutput(&buf)

	l.WithContext(context.Background(), logrus.Fields{"token": "abc", "collection": "spams"}).Info("masked")

	line := decodeLine(t, &buf)
	assert.Equal(t, "******", line["token"])
	assert.Equal(t, "spams", line["collection"])
}
