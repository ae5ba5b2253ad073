package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dubber/internal/config"
	"dubber/internal/testsupport"
)

const testVoices = `voices:
  - voice_id: v-es-1
    name: Lucia
    languages: [es]
    labels:
      gender: female
  - voice_id: v-fr-1
    name: Marin
    languages: [fr]
`

const testSegments = `{"segments": [
  {"start": 0.0, "end": 1.0, "text": "Hello there"},
  {"start": 1.2, "end": 2.0, "text": "How are you"},
  {"start": 5.0, "end": 6.0, "text": "   "}
]}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "LIBRETRANSLATE_API_KEY", "DUBBER_REDIS_PASSWORD"} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t,
		testsupport.WithVoicesFile(testVoices),
		testsupport.WithCacheBackend("file"),
		testsupport.WithStubbedBinaries(),
	)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
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

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestDubCommandWritesTrackAndSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	segments := env.writeFile(t, "talk.json", testSegments)
	output := filepath.Join(env.baseDir, "talk.es.wav")
	metricsPath := filepath.Join(env.baseDir, "dubber.prom")

	out, _, err := runCLI(t, []string{
		"dub",
		"--segments", segments,
		"--target-lang", "spanish",
		"--output", output,
		"--job-id", "cli-job",
		"--metrics-file", metricsPath,
		"--json",
	}, env.configPath)
	if err != nil {
		t.Fatalf("dub: %v", err)
	}

	var summary struct {
		JobID           string         `json:"job_id"`
		TargetLanguage  string         `json:"target_language"`
		Segments        int            `json:"segments"`
		DroppedSegments int            `json:"dropped_segments"`
		Silent          int            `json:"silent"`
		Tiers           map[string]int `json:"translation_tiers"`
		Speakers        []struct {
			VoiceID string `json:"voice_id"`
		} `json:"speakers"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.JobID != "cli-job" || summary.TargetLanguage != "es" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Segments != 2 || summary.DroppedSegments != 1 {
		t.Fatalf("segments=%d dropped=%d", summary.Segments, summary.DroppedSegments)
	}
	if summary.Silent != 2 {
		t.Fatalf("expected silent clips without a tts key, got %d", summary.Silent)
	}
	if summary.Tiers["passthrough"] != 2 {
		t.Fatalf("unexpected tiers %v", summary.Tiers)
	}
	if len(summary.Speakers) == 0 || summary.Speakers[0].VoiceID != "v-es-1" {
		t.Fatalf("expected spanish voice assignment, got %+v", summary.Speakers)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output track: %v", err)
	}
	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	requireContains(t, string(metrics), `dubber_jobs_total{result="success"} 1`)
}

func TestDubCommandTableOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	segments := env.writeFile(t, "talk.json", testSegments)

	out, _, err := runCLI(t, []string{"dub", "-s", segments, "-t", "es"}, env.configPath)
	if err != nil {
		t.Fatalf("dub: %v", err)
	}
	requireContains(t, out, "Dub job ")
	requireContains(t, out, "Lucia")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "talk.es.wav")); err != nil {
		t.Fatalf("expected default output path: %v", err)
	}
}

func TestDubCommandFailsWithoutVoiceForLanguage(t *testing.T) {
	env := setupCLITestEnv(t)
	segments := env.writeFile(t, "talk.json", testSegments)
	output := filepath.Join(env.baseDir, "talk.de.wav")

	_, _, err := runCLI(t, []string{"dub", "-s", segments, "-t", "de", "-o", output}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for unsupported language")
	}
	requireContains(t, err.Error(), "failed at match")
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err = %v", statErr)
	}
}

func TestDubCommandRequiresFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"dub", "-t", "es"}, env.configPath); err == nil {
		t.Fatal("expected missing --segments to fail")
	}
}

func TestVoicesCommandFiltersByLanguage(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voices", "--language", "fr", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	var rows []voiceRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode voices: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "v-fr-1" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	out, _, err = runCLI(t, []string{"voices"}, env.configPath)
	if err != nil {
		t.Fatalf("voices table: %v", err)
	}
	requireContains(t, out, "Lucia")
	requireContains(t, out, "2 voices from file catalog")
}

func TestCacheCommandsOnEmptyCache(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var stats struct {
		Entries int  `json:"entries"`
		Indexed bool `json:"indexed"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %d entries", stats.Entries)
	}

	out, _, err = runCLI(t, []string{"cache", "prune", "--max-mib", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "Removed 0 clips")

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 0 clips")
}

func TestCacheCommandsRequireFileBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Cache.Backend = "none"
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for non-file backend")
	}
	requireContains(t, err.Error(), "file backend")
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Voices file")
	requireContains(t, out, "WARN")

	env.cfg.Audio.FFmpegBinary = "clearly-not-present-ffmpeg"
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatalf("expected doctor failure without ffmpeg:\n%s", out)
	}
	requireContains(t, out, "FAIL")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Synthesis cache: file")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("ELEVENLABS_API_KEY", "el-secret")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	if strings.Contains(out, "el-secret") {
		t.Fatalf("expected api key masked:\n%s", out)
	}
}
