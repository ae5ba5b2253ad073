// Package tts is the ElevenLabs-compatible speech synthesis client.
//
// Synthesize posts text to /v1/text-to-speech/{voice_id} and returns a mono
// audio.Clip. Raw pcm_<rate> output is decoded in process; compressed formats
// such as mp3_44100_128 go through a Decoder (ffmpeg). Voices reads
// /v1/voices and maps labels and verified languages onto voice descriptors.
package tts
