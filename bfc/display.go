package bfc

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// PixelFormat identifies how GetDisplayBuffer's raw bytes are packed.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatWB
	FormatRGB332
	FormatRGBA4444
	FormatRGB565
	FormatRGB888
	FormatRGB8888
)

func pixelFormatFromType(t byte) (PixelFormat, error) {
	switch t {
	case 1:
		return FormatWB, nil
	case 2:
		return FormatRGB332, nil
	case 3:
		return FormatRGBA4444, nil
	case 4:
		return FormatRGB565, nil
	case 5:
		return FormatRGB888, nil
	case 9:
		return FormatRGB8888, nil
	default:
		return FormatUnknown, core.NewError(tag, "display", core.KindUnsupported,
			errors.Errorf("unknown display buffer format %d", t))
	}
}

// bufferByteSize computes a width*height buffer's size in format f.
// wb packs 8 pixels per byte; the others are whole bytes per pixel.
func bufferByteSize(f PixelFormat, width, height int) int {
	pixels := width * height
	switch f {
	case FormatWB:
		return (pixels + 7) / 8
	case FormatRGB332:
		return pixels
	case FormatRGBA4444, FormatRGB565:
		return pixels * 2
	case FormatRGB888:
		return pixels * 3
	case FormatRGB8888:
		return pixels * 4
	default:
		return 0
	}
}

// DisplayBuffer is the decoded result of GetDisplayBuffer.
type DisplayBuffer struct {
	Width, Height int
	Format        PixelFormat
	Data          []byte
}

const (
	dstDisplay              byte = 0x05
	cmdGetDisplayInfo       byte = 0x02
	cmdGetDisplayBufferInfo byte = 0x03
)

// GetDisplayBuffer reads display info, then buffer info, then the
// pixel buffer itself.
func (b *Bus) GetDisplayBuffer(ctx context.Context) (DisplayBuffer, error) {
	var out DisplayBuffer

	infoResp, err := b.Exec(ctx, dstDisplay, []byte{cmdGetDisplayInfo}, ExecOptions{Type: TypeSingle, CRC: true, Auth: true})
	if err != nil {
		return out, errors.Wrap(err, "bfc: get-display-info")
	}
	if len(infoResp) < 5 {
		return out, core.NewError(tag, "display", core.KindProtocolViolation, errors.New("short display-info reply"))
	}
	out.Width = int(binary.LittleEndian.Uint16(infoResp[0:2]))
	out.Height = int(binary.LittleEndian.Uint16(infoResp[2:4]))
	out.Format, err = pixelFormatFromType(infoResp[4])
	if err != nil {
		return out, err
	}

	bufResp, err := b.Exec(ctx, dstDisplay, []byte{cmdGetDisplayBufferInfo}, ExecOptions{Type: TypeSingle, CRC: true, Auth: true})
	if err != nil {
		return out, errors.Wrap(err, "bfc: get-display-buffer-info")
	}
	if len(bufResp) < 4 {
		return out, core.NewError(tag, "display", core.KindProtocolViolation, errors.New("short buffer-info reply"))
	}
	addr := binary.LittleEndian.Uint32(bufResp[0:4])

	size := bufferByteSize(out.Format, out.Width, out.Height)
	data, err := b.ReadMemory(ctx, addr, size)
	if err != nil {
		return out, errors.Wrap(err, "bfc: read display buffer")
	}
	out.Data = data
	return out, nil
}
