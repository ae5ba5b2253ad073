package dubbing

import (
	"context"
	"errors"
	"testing"

	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/synth"
	"dubber/internal/testsupport"
)

const voicesYAML = `voices:
  - voice_id: v1
    name: Ana
    languages: [es]
`

func TestBuildWithoutRemoteBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithVoicesFile(voicesYAML),
		testsupport.WithCacheBackend("file"),
	)

	rt, err := Build(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Pipeline == nil || rt.Metrics == nil {
		t.Fatal("expected pipeline and metrics")
	}
	if rt.LLM != nil {
		t.Fatal("expected no LLM client without an api key")
	}
	if _, ok := rt.Cache.(*synth.FileCache); !ok {
		t.Fatalf("expected file cache, got %T", rt.Cache)
	}
	if rt.Pipeline.deps.Diarizer != nil {
		t.Fatal("expected no diarizer without a url")
	}
}

func TestVoiceSourcesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVoicesFile(voicesYAML))
	if got := VoiceSources(cfg, nil); len(got) != 1 || got[0].Name != CatalogSourceFile {
		t.Fatalf("unexpected sources without tts: %+v", got)
	}

	cfg.TTS.APIKey = "key"
	rt, err := Build(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()
	got := VoiceSources(cfg, rt.TTS)
	if len(got) != 2 || got[0].Name != CatalogSourceTTS || got[1].Name != CatalogSourceFile {
		t.Fatalf("unexpected sources: %+v", got)
	}
}

func TestOpenCacheBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheBackend("none"))
	cache, err := OpenCache(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if _, ok := cache.(synth.NoopCache); !ok {
		t.Fatalf("expected noop cache, got %T", cache)
	}

	cfg.Cache.Backend = "memcached"
	if _, err := OpenCache(context.Background(), cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = ""
	if _, err := OpenCache(context.Background(), cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing redis address, got %v", err)
	}
}
