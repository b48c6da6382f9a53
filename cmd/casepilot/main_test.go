// File: cmd/casepilot/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("batch: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("one or more test cases failed")))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	var written string
	var code int
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = string(data)
		return nil
	}
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("boom")
	}()

	require.Equal(t, 2, code)
	assert.Contains(t, written, "panic: boom")
	assert.Contains(t, written, "goroutine", "stack trace is included")
}

func TestHandlePanic_WriteFailure(t *testing.T) {
	defer resetMocks()

	code := -1
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("boom")
	}()
	assert.Equal(t, 2, code)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	defer resetMocks()
	called := false
	osExit = func(int) { called = true }

	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
