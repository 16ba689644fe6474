package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/engine"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}, "ignored"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(struct{}{}, "all good\n"))
	assert.Equal(t, "all good\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(CodeStorage, "disk full", map[string]int{"cycle": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeStorage, resp.Error.Code)
	assert.Equal(t, "disk full", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(CodeConfig, "bad config", "line 3"))
	assert.Contains(t, buf.String(), "Error [E_CONFIG]: bad config")
	assert.Contains(t, buf.String(), "Details: line 3")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}
	quiet.VerboseLog("cycle %d", 1)
	assert.Empty(t, diag.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}
	loud.VerboseLog("cycle %d", 2)
	assert.Equal(t, "cycle 2\n", diag.String())
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON output")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))
}

func TestExitError(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}

func TestRunExitError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantJSON string
	}{
		{"clean", nil, ExitSuccess, ""},
		{"interrupted", &engine.RunError{Code: engine.ErrCodeInterrupted, Err: context.Canceled}, ExitSuccess, ""},
		{"setup", &engine.RunError{Code: engine.ErrCodeAdapterSetup, Err: cause}, ExitCommandError, CodeSetup},
		{"storage", &engine.RunError{Code: engine.ErrCodeStorageIO, Err: cause}, ExitCommandError, CodeStorage},
		{"other", cause, ExitFailure, CodeRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := runExitError(tt.err)
			assert.Equal(t, tt.wantCode, GetExitCode(mapped))
			if tt.wantJSON != "" {
				assert.Equal(t, tt.wantJSON, errorCode(tt.err))
			}
		})
	}
}
