// Package harness runs envelope scenarios against a real bridge.
//
// A scenario is a YAML file: an optional fixture (the built-in demo
// document or a seed file), a list of steps, each an {action, args}
// envelope with an optional expectation, and assertions over the
// resulting trace and the final document.
//
// Every scenario runs on a fresh in-memory document with a running
// serializer, so steps go through the same dispatch, queue and
// transaction path as HTTP requests. Job ids and sequence numbers are
// deterministic, which makes traces stable enough for golden files:
//
//	go test ./internal/harness -update
//
// regenerates testdata/golden.
package harness
