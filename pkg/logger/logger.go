// Copyright 2021-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	LogContainer     logContainer
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
)

type logContainer struct {
	file         fileSink
	level        zap.AtomicLevel
	levelInit    sync.Once
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger
}

// SetLogFile starts copying everything logged, as JSON, to path. It applies
// to loggers already handed out. An empty path stops the copy.
func (l *logContainer) SetLogFile(path string) error {
	if path == "" {
		return l.file.swap(nil)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	return l.file.swap(f)
}

// fileSink discards writes until it has a file.
type fileSink struct {
	m sync.Mutex
	f *os.File
}

func (s *fileSink) swap(f *os.File) error {
	s.m.Lock()
	defer s.m.Unlock()
	old := s.f
	s.f = f
	if old != nil {
		return old.Close()
	}
	return nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.f == nil {
		return len(p), nil
	}
	return s.f.Write(p)
}

func (s *fileSink) Sync() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Sync()
}

// SetLevel changes the level of every logger handed out, also after the fact.
func (l *logContainer) SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	l.atomicLevel().SetLevel(lvl)
	return nil
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCombinedCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		logger := zap.New(l.getCombinedCore())
		l.simpleLogger = logger.Sugar()
	})
	return l.simpleLogger
}

// String mirrors zap.String
func (l *logContainer) String(key string, val string) zap.Field {
	return zap.String(key, val)
}

// Int mirrors zap.Int
func (l *logContainer) Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func (l *logContainer) atomicLevel() zap.AtomicLevel {
	l.levelInit.Do(func() {
		l.level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	})
	return l.level
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (l *logContainer) getConsoleCore() zapcore.Core {
	return zapcore.NewCore(getConsoleEncoder(), zapcore.AddSync(os.Stdout), l.atomicLevel())
}

func (l *logContainer) getJsonCore() zapcore.Core {
	return zapcore.NewCore(getJsonEncoder(), &l.file, l.atomicLevel())
}

func (l *logContainer) getCombinedCore() zapcore.Core {
	return zapcore.NewTee(l.getConsoleCore(), l.getJsonCore())
}
