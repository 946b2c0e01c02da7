package embedded

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"data/danmaku.yaml":       {Data: []byte("sets: []\n")},
		"data/scripts/spiral.lua": {Data: []byte("function spiral(dt, n) end\n")},
		"data/scripts/wave.lua":   {Data: []byte("function wave(dt, n) end\n")},
	}
}

func TestNotInitialized(t *testing.T) {
	Init(nil)
	assert.False(t, IsInitialized())

	_, err := ReadFile("data/danmaku.yaml")
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.False(t, Exists("data/danmaku.yaml"))
	_, err = Sub("data")
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestReadFile(t *testing.T) {
	Init(testFS())
	t.Cleanup(func() { Init(nil) })

	tests := []struct {
		name string
		path string
		want string
	}{
		{"标准路径", "data/danmaku.yaml", "sets: []\n"},
		{"点斜杠前缀", "./data/danmaku.yaml", "sets: []\n"},
		{"子目录", "data/scripts/spiral.lua", "function spiral(dt, n) end\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := ReadFile("assets/foo.png")
	assert.True(t, errors.Is(err, ErrUnknownPrefix))

	_, err = ReadFile("data/missing.yaml")
	assert.Error(t, err)
}

func TestExistsAndGlob(t *testing.T) {
	Init(testFS())
	t.Cleanup(func() { Init(nil) })

	assert.True(t, Exists("data/scripts/wave.lua"))
	assert.False(t, Exists("data/scripts/none.lua"))
	assert.False(t, Exists("scripts/wave.lua"))

	matches, err := Glob("data/scripts/*.lua")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/scripts/spiral.lua", "data/scripts/wave.lua"}, matches)
}

func TestSub(t *testing.T) {
	Init(testFS())
	t.Cleanup(func() { Init(nil) })

	sub, err := Sub("data")
	require.NoError(t, err)
	src, err := fs.ReadFile(sub, "scripts/spiral.lua")
	require.NoError(t, err)
	assert.Contains(t, string(src), "spiral")

	_, err = Sub("other")
	assert.True(t, errors.Is(err, ErrUnknownPrefix))
}
