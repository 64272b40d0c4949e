package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"flu.com/flu/app"
	F "flu.com/flu/fluid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := newRootCmd(fs)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExampleCmd(t *testing.T) {
	fs := afero.NewMemMapFs()
	out, err := execute(t, fs, "example", "config", "--dim", "3")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/example.toml", []byte(out), 0644))
	cfg, err := app.LoadConfig(app.NewViper(fs), "/example.toml")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Dimension)

	out, err = execute(t, fs, "example", "scene")
	require.NoError(t, err)
	assert.Equal(t, app.ExampleScene, out)

	_, err = execute(t, fs, "example", "movie")
	assert.Error(t, err)
}

func TestKernelsCmd(t *testing.T) {
	out, err := execute(t, afero.NewMemMapFs(), "kernels")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 1+len(F.KernelTypes()))
	assert.Contains(t, out, F.WendlandC2.String())
}

func TestRunCmd(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := "steps = 8\n[layout]\ncounts = [4, 4]\n"
	require.NoError(t, afero.WriteFile(fs, "/run.toml", []byte(config), 0644))
	require.NoError(t, afero.WriteFile(fs, "/events.txt", []byte("add 0 5\nstep 2\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/scene.gcfg", []byte("[Lattice \"a\"]\nCounts = 2 2\nSpacing = 0.4\nCenter = 5 5\n"), 0644))

	_, err := execute(t, fs, "run", "-c", "/run.toml", "--scene", "/scene.gcfg",
		"--script", "/events.txt", "--dump", "/out.txt", "--report", "0", "--field", "8")
	require.NoError(t, err)

	text, err := afero.ReadFile(fs, "/out.txt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(text)), "\n")
	require.Len(t, lines, 1+16+4+1)
	assert.True(t, strings.HasPrefix(lines[0], "# tick 8"))
	assert.Len(t, strings.Fields(lines[1]), 2+3)

	_, err = execute(t, fs, "run", "-c", "/run.toml", "--field", "1000")
	assert.Error(t, err)
	_, err = execute(t, fs, "run", "-c", "/run.toml", "--profile", "gpu")
	assert.Error(t, err)
	_, err = execute(t, fs, "run", "-c", "/missing.toml")
	assert.Error(t, err)
}

func TestDumpReplay(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/run.toml", []byte("steps = 4\n[layout]\ncounts = [3, 3]\n"), 0644))
	_, err := execute(t, fs, "run", "-c", "/run.toml", "--dump", "/out.txt", "--report", "0")
	require.NoError(t, err)

	//The dump spawns again through a Table block on the same fs
	require.NoError(t, afero.WriteFile(fs, "/empty.toml", []byte("steps = 1\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/replay.gcfg", []byte("[Table \"last\"]\nFile = /out.txt\nColumns = 0 1\n"), 0644))
	_, err = execute(t, fs, "run", "-c", "/empty.toml", "--scene", "/replay.gcfg", "--dump", "/replay.txt", "--report", "0")
	require.NoError(t, err)

	text, err := afero.ReadFile(fs, "/replay.txt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(text)), "\n")
	assert.Len(t, lines, 1+9)
}

//limitWriter fails once more than n bytes were written
type limitWriter struct {
	n int
}

var errFull = errors.New("device full")

func (w *limitWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		written := w.n
		w.n = 0
		return written, errFull
	}
	w.n -= len(p)
	return len(p), nil
}

func TestWriteFrameErrors(t *testing.T) {
	frame := app.Frame{
		Tick:      3,
		Positions: []float32{1, 2, 3, 4},
		Colors:    []float32{0, 0, 0, 1, 1, 1},
	}
	header := len("# tick 3, 2 position columns then r g b\n")
	for _, limit := range []int{0, header, header + 1, header + 3} {
		err := writeFrame(&limitWriter{n: limit}, 2, frame)
		assert.True(t, errors.Is(err, errFull), "limit %d", limit)
	}
	assert.NoError(t, writeFrame(&bytes.Buffer{}, 2, frame))

	_, err := execute(t, afero.NewReadOnlyFs(afero.NewMemMapFs()), "run", "--steps", "1", "--dump", "/out.txt", "--report", "0")
	assert.Error(t, err)
}
