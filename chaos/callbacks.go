package chaos

import "github.com/siemens-mobile-hacks/siecore/ioengine"

// Progress is re-exported from ioengine so callers don't need to
// import both packages to read a callback's argument.
type Progress = ioengine.Progress

// ProgressCallback is called periodically during ReadFlash and
// WriteFlash to report transfer progress. Implementations should
// return quickly to avoid blocking the transfer.
type ProgressCallback func(Progress)
