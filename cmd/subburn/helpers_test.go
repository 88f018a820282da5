package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subburn/internal/config"
	"subburn/internal/testsupport"
)

const ffmpegStub = `#!/bin/sh
for last in "$@"; do :; done
printf 'media' > "$last"
`

const whisperStub = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then out="$2"; fi
  shift
done
cat > "$out.json" <<'JSON'
{"transcription":[{"timestamps":{"from":"00:00:00,000","to":"00:00:01,200"},"offsets":{"from":0,"to":1200},"text":" hello"},{"timestamps":{"from":"00:00:01,200","to":"00:00:03,000"},"offsets":{"from":1200,"to":3000},"text":" world"}]}
JSON
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	videoDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithModel("small"))
	base := testsupport.BaseDir(cfg)
	cfg.Transcoder.VerifyOutputs = false
	cfg.Logging.Level = "error"

	binDir := filepath.Join(base, "bin")
	testsupport.WriteScript(t, filepath.Join(binDir, "ffmpeg"), ffmpegStub)
	testsupport.WriteScript(t, filepath.Join(binDir, "whisper-cli"), whisperStub)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("SUBBURN_MODELS_DIR", "")

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		videoDir:   filepath.Join(base, "videos"),
	}
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) video(t *testing.T, name string) string {
	t.Helper()
	return testsupport.WriteVideo(t, e.videoDir, name)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file %s: %v", path, err)
	}
	return string(data)
}

func requireNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent (err=%v)", path, err)
	}
}
