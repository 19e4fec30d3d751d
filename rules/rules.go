//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdlibErrors flags plain error construction in internal packages. Errors
// leaving a package carry a category so callers can classify them.
//
//	return fmt.Errorf("open stream: %w", err)
//
// should be
//
//	return errors.New(err).Component("audioengine").Category(errors.CategoryAudio).Build()
func StdlibErrors(m dsl.Matcher) {
	m.Match(`fmt.Errorf($*_)`).
		Where(m.File().PkgPath.Matches(`internal/(audioengine|encoder|playback|bitarray)`) &&
			!m.File().Name.Matches(`(^errors|_test)\.go$`)).
		Report("build a categorized error with errors.New/Newf instead of fmt.Errorf")
}

// BlockingInRealtimeLoop flags calls that can block for an unbounded time
// inside the engine's worker files.
func BlockingInRealtimeLoop(m dsl.Matcher) {
	m.Match(`time.Sleep($_)`).
		Where(m.File().Name.Matches(`^(worker|capture|render)\.go$`)).
		Report("do not sleep on an audio worker thread; wait on the stream's readiness signal")

	m.Match(`$log.Info($*_)`, `$log.Debug($*_)`).
		Where(m.File().Name.Matches(`^(capture|render)\.go$`)).
		Report("per-cycle logging on the audio thread; count it in stats or use the rate-limited warning")
}

// StdLog flags the standard log package; use the module logger.
func StdLog(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`, `log.Fatalf($*_)`).
		Where(m.File().Imports("log")).
		Report("use GetLogger() with structured fields instead of the standard log package")
}

// WaitGroupGo detects the old sync.WaitGroup pattern and suggests wg.Go().
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern").
		Suggest("$wg.Go(func() { $body })")
}
