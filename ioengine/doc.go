// Package ioengine turns a low-level, single-page chunk primitive into
// a resilient, progress-reporting bulk transfer: retries, adaptive
// page shrinking on repeated failure, cancellation, and partial
// results.
//
// Every memory-read/write protocol in this module (cgsn, dwd, chaos)
// composes over this package rather than hand-rolling its own
// chunking loop: a phase-by-phase loop that chunks a transfer, retries
// a failed chunk a bounded number of times, and reports Progress
// through a functional-option callback, with the chunk size itself
// adapting to the observed failure rate instead of staying fixed, and
// the loop driven by an address/length pair instead of a fixed row
// list.
//
// # Usage
//
//	var api ioengine.ReadAPI = client // a connected *dwd.Client
//	result, err := ioengine.Read(ctx, api, ioengine.ReadOp{
//	    Addr:   0x02000000,
//	    Length: 1 << 20,
//	    Align:  1,
//	    PageSize: 230,
//	    Retries: 3,
//	    Progress: func(p ioengine.Progress) { fmt.Println(p.Percent) },
//	})
package ioengine
