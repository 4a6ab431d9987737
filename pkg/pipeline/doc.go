// Package pipeline implements the middleware pipeline around provider
// dispatch. Units wrap each other as closures, global units outermost,
// with a terminal handler at the center that sends the message through
// the resolved driver.
//
// The pipeline is fault-isolating: a unit that panics or returns its own
// error is logged and skipped, and processing continues with the rest of
// the chain. Errors coming back from downstream (the driver, tool
// dispatch) propagate unchanged.
package pipeline
