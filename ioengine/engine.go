package ioengine

import (
	"context"
	"time"

	"github.com/siemens-mobile-hacks/siecore/core"
)

const tag = "ioengine"

var errAlignment = core.NewError(tag, "align", core.KindAlignment, nil)

func checkAlign(addr uint32, length, align int) error {
	if align <= 0 {
		align = 1
	}
	if int(addr)%align != 0 || length%align != 0 {
		return errAlignment
	}
	return nil
}

func floorAlign(v, align int) int {
	if align <= 0 {
		align = 1
	}
	v -= v % align
	if v < align {
		v = align
	}
	return v
}

// speedTracker implements ~1Hz speed smoothing:
// sample cursor at roughly 1-second intervals and report
// delta-cursor/delta-time, falling back to the lifetime average until
// the first interval elapses.
type speedTracker struct {
	start       time.Time
	lastSample  time.Time
	lastCursor  int
	speed       float64
	haveSampled bool
}

func newSpeedTracker(now time.Time) *speedTracker {
	return &speedTracker{start: now, lastSample: now}
}

func (s *speedTracker) update(now time.Time, cursor int) float64 {
	elapsed := now.Sub(s.lastSample)
	if elapsed >= time.Second {
		delta := cursor - s.lastCursor
		s.speed = float64(delta) / elapsed.Seconds()
		s.lastSample = now
		s.lastCursor = cursor
		s.haveSampled = true
	}
	if !s.haveSampled {
		total := now.Sub(s.start).Seconds()
		if total <= 0 {
			return 0
		}
		return float64(cursor) / total
	}
	return s.speed
}

// Read drives a bulk read of op.Length bytes starting at op.Addr
// through api, with retry and adaptive page shrinking.
func Read(ctx context.Context, api ReadAPI, op ReadOp) (Result, error) {
	op = op.WithDefaults()
	if err := checkAlign(op.Addr, op.Length, op.Align); err != nil {
		return Result{}, err
	}

	pageSize := op.PageSize
	if pageSize <= 0 || pageSize > api.PageSize() {
		pageSize = api.PageSize()
	}

	buf := make([]byte, op.Length)
	cursor := 0
	totalErrors := 0
	perSizeFailures := 0

	speed := newSpeedTracker(time.Now())
	startTime := time.Now()
	lastProgress := time.Time{}

	emit := func(force bool, pageAddr uint32, curPageSize int) {
		if op.Progress == nil {
			return
		}
		now := time.Now()
		if !force && op.ProgressInterval > 0 && now.Sub(lastProgress) < op.ProgressInterval {
			return
		}
		lastProgress = now
		percent := 0.0
		if op.Length > 0 {
			percent = 100 * float64(cursor) / float64(op.Length)
		}
		op.Progress(Progress{
			Percent:   percent,
			Cursor:    cursor,
			Total:     op.Length,
			Speed:     speed.update(now, cursor),
			Remaining: remainingEstimate(speed.speed, op.Length-cursor),
			Elapsed:   now.Sub(startTime),
			Errors:    totalErrors,
			PageAddr:  pageAddr,
			PageSize:  curPageSize,
		})
	}

	for cursor < op.Length {
		select {
		case <-ctx.Done():
			return Result{Buffer: buf[:cursor], Cursor: cursor, Canceled: true, Errors: totalErrors}, nil
		default:
		}

		readSize := pageSize
		if op.Length-cursor < readSize {
			readSize = op.Length - cursor
		}
		pageAddr := op.Addr + uint32(cursor)

		emit(true, pageAddr, readSize)

		err := api.Read(ctx, pageAddr, readSize, buf, cursor)
		if err == nil {
			cursor += readSize
			perSizeFailures = 0
			emit(cursor == op.Length, pageAddr, readSize)
			continue
		}

		totalErrors++
		perSizeFailures++
		if op.OnError != nil {
			op.OnError(err, pageAddr, readSize)
		}

		if perSizeFailures > op.Retries {
			return Result{Buffer: buf[:cursor], Cursor: cursor, Errors: totalErrors}, err
		}

		if op.Adaptive != nil && perSizeFailures >= op.Adaptive.RetriesBeforeShrink && op.Length-cursor > 0 {
			next := floorAlign(pageSize/2, op.Align)
			if next < op.Adaptive.SmallPageSize {
				next = op.Adaptive.SmallPageSize
			}
			if next < pageSize {
				pageSize = next
				perSizeFailures = 0
			}
		}
	}

	emit(true, op.Addr+uint32(cursor), pageSize)
	return Result{Buffer: buf, Cursor: cursor, Errors: totalErrors}, nil
}

// Write drives a bulk write of op.Data starting at op.Addr through
// api, symmetric to Read except the chunk primitive receives a
// sub-slice rather than a buffer offset.
func Write(ctx context.Context, api WriteAPI, op WriteOp) (Result, error) {
	op = op.WithDefaults()
	total := len(op.Data)
	if err := checkAlign(op.Addr, total, op.Align); err != nil {
		return Result{}, err
	}

	pageSize := op.PageSize
	if pageSize <= 0 || pageSize > api.PageSize() {
		pageSize = api.PageSize()
	}

	cursor := 0
	totalErrors := 0
	perSizeFailures := 0

	speed := newSpeedTracker(time.Now())
	startTime := time.Now()
	lastProgress := time.Time{}

	emit := func(force bool, pageAddr uint32, curPageSize int) {
		if op.Progress == nil {
			return
		}
		now := time.Now()
		if !force && op.ProgressInterval > 0 && now.Sub(lastProgress) < op.ProgressInterval {
			return
		}
		lastProgress = now
		percent := 0.0
		if total > 0 {
			percent = 100 * float64(cursor) / float64(total)
		}
		op.Progress(Progress{
			Percent:   percent,
			Cursor:    cursor,
			Total:     total,
			Speed:     speed.update(now, cursor),
			Remaining: remainingEstimate(speed.speed, total-cursor),
			Elapsed:   now.Sub(startTime),
			Errors:    totalErrors,
			PageAddr:  pageAddr,
			PageSize:  curPageSize,
		})
	}

	for cursor < total {
		select {
		case <-ctx.Done():
			return Result{Written: cursor, Cursor: cursor, Canceled: true, Errors: totalErrors}, nil
		default:
		}

		writeSize := pageSize
		if total-cursor < writeSize {
			writeSize = total - cursor
		}
		pageAddr := op.Addr + uint32(cursor)

		emit(true, pageAddr, writeSize)

		err := api.Write(ctx, pageAddr, op.Data[cursor:cursor+writeSize])
		if err == nil {
			cursor += writeSize
			perSizeFailures = 0
			emit(cursor == total, pageAddr, writeSize)
			continue
		}

		totalErrors++
		perSizeFailures++
		if op.OnError != nil {
			op.OnError(err, pageAddr, writeSize)
		}

		if perSizeFailures > op.Retries {
			return Result{Written: cursor, Cursor: cursor, Errors: totalErrors}, err
		}

		if op.Adaptive != nil && perSizeFailures >= op.Adaptive.RetriesBeforeShrink && total-cursor > 0 {
			next := floorAlign(pageSize/2, op.Align)
			if next < op.Adaptive.SmallPageSize {
				next = op.Adaptive.SmallPageSize
			}
			if next < pageSize {
				pageSize = next
				perSizeFailures = 0
			}
		}
	}

	emit(true, op.Addr+uint32(cursor), pageSize)
	return Result{Written: cursor, Cursor: cursor, Errors: totalErrors}, nil
}

func remainingEstimate(speed float64, remainingBytes int) time.Duration {
	if speed <= 0 {
		return 0
	}
	return time.Duration(float64(remainingBytes)/speed) * time.Second
}
