package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCorrectionServer fakes the correction service. It echoes every comment
// back unchanged, except that any comment containing "reject" fails the
// whole request with a non-retryable error.
func newCorrectionServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 2)

		var set struct {
			Comments map[string]string `json:"comments"`
		}
		require.NoError(t, json.Unmarshal([]byte(req.Messages[1].Content), &set))

		for _, text := range set.Comments {
			if strings.Contains(text, "reject") {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": {"message": "rejected", "type": "invalid_request_error"}}`))
				return
			}
		}

		content, err := json.Marshal(map[string]any{"comments": set.Comments})
		require.NoError(t, err)
		reply, err := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
		})
		require.NoError(t, err)
		_, _ = w.Write(reply)
	}))
}

func setServiceEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", baseURL)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WORKER_COUNT", "2")
}

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRunCheckDir(t *testing.T) {
	t.Run("failed files produce no output", func(t *testing.T) {
		srv := newCorrectionServer(t, nil)
		defer srv.Close()
		setServiceEnv(t, srv.URL)

		inputDir := t.TempDir()
		outputDir := t.TempDir()
		writeInput(t, inputDir, "ok.py", "x = 1  # a fine note\n")
		writeInput(t, inputDir, "bad.py", "y = 2  # reject this one\n")

		err := runCheckDir(inputDir, outputDir)
		require.Error(t, err)
		assert.ErrorContains(t, err, "1 of 2 files failed")

		// The failing file must leave nothing behind in the output tree.
		_, statErr := os.Stat(filepath.Join(outputDir, "bad.py"))
		assert.True(t, os.IsNotExist(statErr), "no output expected for a failed file")

		got, readErr := os.ReadFile(filepath.Join(outputDir, "ok.py"))
		require.NoError(t, readErr)
		assert.Equal(t, "x = 1  # a fine note\n", string(got))
	})

	t.Run("writes all files when correction succeeds", func(t *testing.T) {
		srv := newCorrectionServer(t, nil)
		defer srv.Close()
		setServiceEnv(t, srv.URL)

		inputDir := t.TempDir()
		outputDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "sub"), 0755))
		writeInput(t, inputDir, "a.py", "# first\n")
		writeInput(t, filepath.Join(inputDir, "sub"), "b.lua", "-- second\n")

		require.NoError(t, runCheckDir(inputDir, outputDir))

		got, err := os.ReadFile(filepath.Join(outputDir, "a.py"))
		require.NoError(t, err)
		assert.Equal(t, "# first\n", string(got))

		got, err = os.ReadFile(filepath.Join(outputDir, "sub", "b.lua"))
		require.NoError(t, err)
		assert.Equal(t, "-- second\n", string(got))
	})

	t.Run("comment-free file skips the service", func(t *testing.T) {
		var calls atomic.Int32
		srv := newCorrectionServer(t, &calls)
		defer srv.Close()
		setServiceEnv(t, srv.URL)

		inputDir := t.TempDir()
		outputDir := t.TempDir()
		writeInput(t, inputDir, "plain.js", "const s = \"// not a comment\";\n")

		require.NoError(t, runCheckDir(inputDir, outputDir))
		assert.Zero(t, calls.Load())

		got, err := os.ReadFile(filepath.Join(outputDir, "plain.js"))
		require.NoError(t, err)
		assert.Equal(t, "const s = \"// not a comment\";\n", string(got))
	})

	t.Run("empty directory is not an error", func(t *testing.T) {
		srv := newCorrectionServer(t, nil)
		defer srv.Close()
		setServiceEnv(t, srv.URL)

		require.NoError(t, runCheckDir(t.TempDir(), t.TempDir()))
	})
}
