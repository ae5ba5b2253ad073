package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dubber/internal/audio"
	"dubber/internal/services"
	"dubber/internal/services/tts"
)

type fakeDecoder struct {
	got  []byte
	rate int
}

func (f *fakeDecoder) Decode(_ context.Context, data []byte, rate int) (audio.Clip, error) {
	f.got = data
	f.rate = rate
	return audio.Clip{Samples: make([]float64, rate), SampleRate: rate}, nil
}

func TestSynthesizeDecodesPCM(t *testing.T) {
	pcm := audio.EncodeS16LE(audio.Clip{Samples: []float64{0, 0.5, -0.5, 0}, SampleRate: 16000})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Errorf("unexpected output format %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var body struct {
			Text          string `json:"text"`
			ModelID       string `json:"model_id"`
			VoiceSettings struct {
				Stability       float64 `json:"stability"`
				SimilarityBoost float64 `json:"similarity_boost"`
			} `json:"voice_settings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Text != "hola" || body.ModelID != "eleven_multilingual_v2" || body.VoiceSettings.Stability != 0.5 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write(pcm)
	}))
	defer server.Close()

	client := tts.NewClient(tts.Config{APIKey: "key", BaseURL: server.URL, OutputFormat: "pcm_16000", Stability: 0.5, SimilarityBoost: 0.75})
	clip, err := client.Synthesize(context.Background(), "hola", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if clip.SampleRate != 16000 || len(clip.Samples) != 4 {
		t.Fatalf("unexpected clip rate=%d samples=%d", clip.SampleRate, len(clip.Samples))
	}
}

func TestSynthesizeUsesDecoderForCompressedFormats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ID3mp3"))
	}))
	defer server.Close()

	decoder := &fakeDecoder{}
	client := tts.NewClient(tts.Config{APIKey: "key", BaseURL: server.URL, OutputFormat: "mp3_44100_128"},
		tts.WithDecoder(decoder, 22050))
	clip, err := client.Synthesize(context.Background(), "hola", "v")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(decoder.got) != "ID3mp3" || decoder.rate != 22050 || clip.SampleRate != 22050 {
		t.Fatalf("decoder not used as expected: %q %d", decoder.got, decoder.rate)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/text-to-speech/empty" {
			return
		}
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := tts.NewClient(tts.Config{APIKey: "key", BaseURL: server.URL})
	for _, voiceID := range []string{"busy", "empty"} {
		if _, err := client.Synthesize(context.Background(), "hola", voiceID); !errors.Is(err, services.ErrExternalService) {
			t.Fatalf("voice %s: expected external service error, got %v", voiceID, err)
		}
	}
	if _, err := tts.NewClient(tts.Config{BaseURL: server.URL}).Synthesize(context.Background(), "hola", "v"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without key, got %v", err)
	}
}

func TestVoicesMapsLabelsAndLanguages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"voices":[
			{"voice_id":"v1","name":"Rachel","labels":{"gender":"female","accent":"american"},
			 "verified_languages":[{"language":"en","locale":"en-US"},{"language":"es"}]},
			{"voice_id":"v2","name":"Legacy","labels":{}}
		]}`))
	}))
	defer server.Close()

	descs, err := tts.NewClient(tts.Config{APIKey: "key", BaseURL: server.URL}).Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices returned error: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("expected two voices, got %+v", descs)
	}
	if !descs[0].Supports("es") || descs[0].Attributes["gender"] != "female" {
		t.Fatalf("unexpected descriptor %+v", descs[0])
	}
	if len(descs[1].Languages) != 0 {
		t.Fatalf("expected no languages for unverified voice, got %v", descs[1].Languages)
	}
}

func TestPCMRate(t *testing.T) {
	if rate, ok := tts.PCMRate("pcm_24000"); !ok || rate != 24000 {
		t.Fatalf("unexpected rate %d %v", rate, ok)
	}
	if _, ok := tts.PCMRate("mp3_44100_128"); ok {
		t.Fatal("mp3 is not pcm")
	}
}
