// Package audio holds the mono sample buffer shared by analysis, synthesis,
// and assembly, plus its codecs: raw s16le PCM, WAV through beep, and ffmpeg
// for everything else (compressed decode, atempo stretching, output
// transcoding).
package audio
