// Package usage records token consumption per provider, model, and
// conversation. The Recorder sink turns ResponseGenerated events into
// ledger records; backends exist in-memory and on PostgreSQL.
//
// The ledger only records. Budget enforcement and cost arithmetic live
// with its consumers.
package usage
