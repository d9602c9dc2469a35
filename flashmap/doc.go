// Package flashmap models a phone's flash layout as a sorted,
// non-overlapping sequence of erase-block-sized regions and answers
// the one question every flash writer needs: given an address and a
// length, which regions does this write touch, and is each touched
// region only partially covered?
//
// chaos.WriteFlash builds a Map from the regions its loader reports
// and then calls AlignToRegions to split a caller's write into
// per-region chunks before handing each chunk to the loader's write
// command. ebl does not use this package: its ProbeCFI returns the CFI
// descriptors as opaque bytes.
package flashmap
