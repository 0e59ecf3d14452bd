// Package tts abstracts on-device speech synthesis. The only caller is the
// proctoring monitor, which speaks absence warnings on the candidate's
// device; synthesis itself happens client-side, reached through the bridge.
package tts

// Provider speaks text and invokes done when playback finishes or fails; a
// failed warning must not leave the absence latch stuck.
type Provider interface {
	Speak(text string, done func())
}

// Func adapts a function to Provider.
type Func func(text string, done func())

func (f Func) Speak(text string, done func()) { f(text, done) }

// Noop completes immediately without speaking. Used when the client reports
// no synthesis support.
type Noop struct{}

func (Noop) Speak(_ string, done func()) {
	if done != nil {
		done()
	}
}
