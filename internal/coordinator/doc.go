// Package coordinator runs one identify session.
//
// In integrated mode it drains the session's announcement queue, starts one
// shelf worker per announced item, and merges each worker's tags into the
// companion pool's result for the same item. In standalone mode it runs a
// single worker for an already known vendor identifier. Either way the
// session's registry entry is removed when Identify returns.
package coordinator
