package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wraphound/internal/detector"
)

func TestNewServerRegistersTools(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	assert.Equal(t, []string{ToolNameDetect, ToolNameScan}, srv.ListToolNames())
}

func TestValidateCodeInput(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, validateCodeInput(""), ErrEmptyCode)
	assert.ErrorIs(t, validateCodeInput(strings.Repeat("x", MaxCodeInputBytes+1)), ErrCodeTooLarge)
	assert.NoError(t, validateCodeInput("int main(void) { return 0; }"))
}

func TestHandleDetectFindsWrapper(t *testing.T) {
	t.Parallel()

	input := DetectInput{
		Code: `
int my_open(const char *p, int f) { return open(p, f); }
`,
	}

	result, output, err := handleDetect(context.Background(), nil, input)
	require.NoError(t, err)
	require.False(t, result.IsError)

	cands, ok := output.Data.([]detector.Candidate)
	require.True(t, ok)
	require.Len(t, cands, 1)
	assert.Equal(t, "my_open", cands[0].Wrapper)
	assert.Equal(t, "open", cands[0].Target)
}

func TestHandleDetectRejectsBadInput(t *testing.T) {
	t.Parallel()

	result, _, err := handleDetect(context.Background(), nil, DetectInput{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = handleDetect(context.Background(), nil, DetectInput{
		Code:     "int x;",
		Language: "rust",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleScanRequiresPaths(t *testing.T) {
	t.Parallel()

	result, _, err := handleScan(context.Background(), nil, ScanInput{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = handleScan(context.Background(), nil, ScanInput{CompDBPath: "/tmp/db.json"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
