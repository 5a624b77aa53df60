// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogFile(t *testing.T) {
	log := LogContainer.GetSimpleLogger()
	path := filepath.Join(t.TempDir(), "wdtd.log")
	require.NoError(t, LogContainer.SetLogFile(path))
	log.Infow("armed", "timeout", 30)
	require.NoError(t, LogContainer.SetLogFile(""))
	log.Info("not in the file")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "armed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(30), entry["timeout"])
}

func TestSetLevel(t *testing.T) {
	defer LogContainer.SetLevel("info")
	require.NoError(t, LogContainer.SetLevel("debug"))
	assert.True(t, LogContainer.GetLogger().Core().Enabled(zapcore.DebugLevel))
	require.NoError(t, LogContainer.SetLevel("warn"))
	assert.False(t, LogContainer.GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.Error(t, LogContainer.SetLevel("loud"))
}
