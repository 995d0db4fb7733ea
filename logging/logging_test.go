package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/canetrack/canetrack"
	"github.com/stretchr/testify/assert"
)

func Test_New(t *testing.T) {
	testCases := []struct {
		name       string
		provider   canetrack.LogProvider
		filename   string
		expectType Logger
		expectErr  bool
	}{
		{
			name:       "jellog log",
			provider:   canetrack.Jellog,
			filename:   "test-jellog.log",
			expectType: jellogLogger{},
		},
		{
			name:       "standard log",
			provider:   canetrack.StdLog,
			filename:   "test-std.log",
			expectType: stdLogger{},
		},
		{
			name:      "NoLog provider is an error",
			provider:  canetrack.NoLog,
			filename:  "test-none.log",
			expectErr: true,
		},
		{
			name:      "unknown provider is an error",
			provider:  canetrack.LogProvider(-1),
			filename:  "test-unknown.log",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			tempDir := t.TempDir()
			filePath := filepath.Join(tempDir, tc.filename)

			actual, err := New(tc.provider, filePath)

			if tc.expectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
				assert.IsType(tc.expectType, actual)
			}
		})
	}
}

func Test_stdLogger_levels(t *testing.T) {
	testCases := []struct {
		name   string
		log    func(l Logger)
		expect string
	}{
		{name: "trace", log: func(l Logger) { l.Tracef("refresh %d", 3) }, expect: "TRACE refresh 3"},
		{name: "debug", log: func(l Logger) { l.Debug("loaded") }, expect: "DEBUG loaded"},
		{name: "info", log: func(l Logger) { l.Infof("listening on %s", ":8080") }, expect: "INFO  listening on :8080"},
		{name: "warn", log: func(l Logger) { l.Warn("stale snapshot") }, expect: "WARN  stale snapshot"},
		{name: "error", log: func(l Logger) { l.Errorf("write: %s", "disk full") }, expect: "ERROR write: disk full"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			tc.log(NewStd(&buf))

			assert.Contains(buf.String(), tc.expect)
		})
	}
}
