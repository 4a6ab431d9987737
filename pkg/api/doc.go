// Package api defines the core data model shared by every layer of the
// weiche pipeline: the Message flowing through the middleware chain, the
// Response produced by a driver, tool call and result types, token usage
// accounting, and the error taxonomy.
//
// This package depends only on the standard library so that drivers,
// middleware units, and tool executors can all build on it without
// import cycles.
package api
