package dubbing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"dubber/internal/audio"
	"dubber/internal/fileutil"
	"dubber/internal/language"
	"dubber/internal/services"
)

// ErrOutputLocked is returned when another job is writing the same output path.
var ErrOutputLocked = errors.New("output path is locked by another job")

const outputLockRetry = 100 * time.Millisecond

// writeOutput encodes clip to dst through a temp file in dst's directory.
// Non-WAV extensions are transcoded before the final rename, so dst only ever
// holds a complete file. Transcoded outputs carry lang as stream metadata.
func (p *Pipeline) writeOutput(ctx context.Context, dst string, clip audio.Clip, lang language.Code) error {
	dst, err := filepath.Abs(dst)
	if err != nil {
		return services.Wrap(services.ErrValidation, "write", "output", "resolve output path", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	unlock, err := lockOutput(ctx, dst)
	if err != nil {
		return err
	}
	defer unlock()

	ext := strings.ToLower(filepath.Ext(dst))
	if ext == "" || ext == ".wav" {
		return fileutil.WriteAtomic(dst, 0o644, func(f *os.File) error {
			return audio.WriteWAV(f, clip)
		})
	}
	if p.deps.Transcoder == nil {
		return services.Wrap(services.ErrConfiguration, "write", "output",
			fmt.Sprintf("writing %s requires ffmpeg", ext), nil)
	}

	wavTmp, err := fileutil.TempSibling(strings.TrimSuffix(dst, filepath.Ext(dst)) + ".wav")
	if err != nil {
		return err
	}
	defer func() { _ = fileutil.RemoveIfExists(wavTmp) }()
	if err := audio.WriteWAVFile(wavTmp, clip); err != nil {
		return err
	}
	outTmp, err := fileutil.TempSibling(dst)
	if err != nil {
		return err
	}
	if err := p.deps.Transcoder.Transcode(ctx, wavTmp, outTmp, lang.ISO3()); err != nil {
		_ = fileutil.RemoveIfExists(outTmp)
		return services.Wrap(services.ErrExternalService, "write", "transcode", ext, err)
	}
	if err := ctx.Err(); err != nil {
		_ = fileutil.RemoveIfExists(outTmp)
		return err
	}
	if err := fileutil.Replace(outTmp, dst); err != nil {
		_ = fileutil.RemoveIfExists(outTmp)
		return err
	}
	return nil
}

// lockOutput serialises writers of the same destination across processes.
// The lock lives in the temp directory so nothing is left beside the output.
func lockOutput(ctx context.Context, dst string) (func(), error) {
	sum := sha256.Sum256([]byte(dst))
	path := filepath.Join(os.TempDir(), "dubber-"+hex.EncodeToString(sum[:8])+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, outputLockRetry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrOutputLocked, dst, ctxErr)
		}
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, dst)
	}
	return func() { _ = fl.Unlock() }, nil
}
