package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpeg runs the ffmpeg binary for decoding, time-stretching, and
// transcoding. The zero value resolves "ffmpeg" from PATH.
type FFmpeg struct {
	Binary string
}

func (f FFmpeg) binary() string {
	if bin := strings.TrimSpace(f.Binary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// Load decodes audio stream number stream (counting audio streams only) of
// path to mono PCM at sampleRate.
func (f FFmpeg) Load(ctx context.Context, path string, stream, sampleRate int) (Clip, error) {
	if stream < 0 {
		stream = 0
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-map", "0:a:" + strconv.Itoa(stream),
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
	out, err := f.run(ctx, nil, args)
	if err != nil {
		return Clip{}, fmt.Errorf("ffmpeg load: %w", err)
	}
	return DecodeS16LE(out, sampleRate)
}

// Decode converts encoded audio bytes (mp3, ogg, wav) to mono PCM at sampleRate.
func (f FFmpeg) Decode(ctx context.Context, data []byte, sampleRate int) (Clip, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
	out, err := f.run(ctx, data, args)
	if err != nil {
		return Clip{}, fmt.Errorf("ffmpeg decode: %w", err)
	}
	return DecodeS16LE(out, sampleRate)
}

// Stretch changes the clip tempo by factor without altering pitch. A factor
// above 1 shortens the clip. atempo accepts factors in [0.5, 100].
func (f FFmpeg) Stretch(ctx context.Context, clip Clip, factor float64) (Clip, error) {
	if factor < 0.5 || factor > 100 {
		return Clip{}, fmt.Errorf("ffmpeg stretch: tempo %.3f out of range", factor)
	}
	rate := strconv.Itoa(clip.SampleRate)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le", "-ar", rate, "-ac", "1",
		"-i", "pipe:0",
		"-filter:a", "atempo=" + strconv.FormatFloat(factor, 'f', 6, 64),
		"-f", "s16le", "-ar", rate, "-ac", "1",
		"-",
	}
	out, err := f.run(ctx, EncodeS16LE(clip), args)
	if err != nil {
		return Clip{}, fmt.Errorf("ffmpeg stretch: %w", err)
	}
	stretched, err := DecodeS16LE(out, clip.SampleRate)
	if err != nil {
		return Clip{}, err
	}
	if stretched.Empty() {
		return Clip{}, fmt.Errorf("ffmpeg stretch: no samples produced")
	}
	return stretched, nil
}

// Transcode converts src to dst, choosing the container and codec from the
// destination file extension. lang, an ISO 639-2 code, tags the audio stream
// when set.
func (f FFmpeg) Transcode(ctx context.Context, src, dst, lang string) error {
	if _, err := f.run(ctx, nil, transcodeArgs(src, dst, lang)); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}

func transcodeArgs(src, dst, lang string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
	}
	if lang = strings.TrimSpace(lang); lang != "" && lang != "und" {
		args = append(args, "-metadata:s:a:0", "language="+lang)
	}
	return append(args, dst)
}

func (f FFmpeg) run(ctx context.Context, stdin []byte, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.binary(), args...) //nolint:gosec
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
