// Package playback provides ready-made application callbacks for the audio
// engine: a file player for render, an encoder-backed recorder for capture
// and a loopback bridge that plays captured audio straight back out.
package playback
