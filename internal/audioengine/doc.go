// Package audioengine moves fixed-size periods of PCM audio between audio
// endpoints and an application callback on two real-time worker goroutines,
// one for capture and one for render.
//
// The control flow mirrors the lifecycle of each direction:
//
//	e := audioengine.New(provider)
//	e.Initialize()
//	e.SetRecordingDevice(-1)           // bind the default endpoint
//	e.SetRecordingFormat(48000, 1)     // negotiate
//	e.InitRecording()                  // prepare the stream
//	e.SetAudioBufferCallback(cb)
//	e.StartRecording()
//	...
//	e.Terminate()
//
// Each worker locks its OS thread, attaches it to the platform session,
// requests real-time scheduling and then waits on the stream's readiness
// signal with a bounded timeout. Reconfiguration while a direction is
// running fails with ErrInvalidState.
//
// When echo cancellation is enabled, every rendered period is published
// through a ReferenceBuffer and handed to the EchoCanceller together with
// the next captured period.
package audioengine
