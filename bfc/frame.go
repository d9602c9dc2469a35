package bfc

import (
	"github.com/pkg/errors"
	"github.com/siemens-mobile-hacks/siecore/core"
)

// headerSize is dst,src,len_hi,len_lo,type_flags,header_xor.
const headerSize = 6

// crcSize is the optional trailer's width.
const crcSize = 2

func headerXOR(h []byte) byte {
	return h[0] ^ h[1] ^ h[2] ^ h[3] ^ h[4]
}

// encodeFrame serializes f into wire bytes, appending a CRC-16 trailer
// over header||payload when f.Flags carries FlagCRC.
func encodeFrame(f Frame) []byte {
	n := len(f.Payload)
	buf := make([]byte, headerSize, headerSize+n+crcSize)
	buf[0] = f.Dst
	buf[1] = f.Src
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	buf[4] = byte(f.Type)<<4 | byte(f.Flags)
	buf[5] = headerXOR(buf)
	buf = append(buf, f.Payload...)
	if f.hasFlag(FlagCRC) {
		crc := crc16(buf)
		buf = append(buf, byte(crc>>8), byte(crc))
	}
	return buf
}

// decodeFrame parses one complete frame (header, payload, and trailer
// if present) out of buf. Callers determine buf's length from the
// header's length field and flags before calling this.
func decodeFrame(buf []byte) (Frame, error) {
	if len(buf) < headerSize {
		return Frame{}, errors.New("bfc: frame shorter than header")
	}
	if buf[5] != headerXOR(buf) {
		return Frame{}, core.NewError(tag, "decode-frame", core.KindIntegrityFailure,
			errors.New("header XOR mismatch"))
	}
	length := int(buf[2])<<8 | int(buf[3])
	typeFlags := buf[4]
	flags := Flag(typeFlags & 0x0F)
	body := buf[headerSize:]
	if flags&FlagCRC != 0 {
		if len(body) < length+crcSize {
			return Frame{}, errors.New("bfc: frame shorter than declared length+crc")
		}
		payload := body[:length]
		wantCRC := uint16(body[length])<<8 | uint16(body[length+1])
		gotCRC := crc16(buf[:headerSize+length])
		if wantCRC != gotCRC {
			return Frame{}, core.NewError(tag, "decode-frame", core.KindIntegrityFailure,
				errors.New("CRC-16 mismatch"))
		}
		return Frame{
			Dst: buf[0], Src: buf[1],
			Type: FrameType(typeFlags >> 4), Flags: flags,
			Payload: append([]byte(nil), payload...),
		}, nil
	}
	if len(body) < length {
		return Frame{}, errors.New("bfc: frame shorter than declared length")
	}
	return Frame{
		Dst: buf[0], Src: buf[1],
		Type: FrameType(typeFlags >> 4), Flags: flags,
		Payload: append([]byte(nil), body[:length]...),
	}, nil
}

// scanner accumulates raw bytes off the wire and extracts complete
// frames, discarding noise up to a valid header checkpoint:
// "receivers scan for valid header XOR checkpoints; noise before a
// valid header is discarded".
type scanner struct {
	buf []byte
}

func (s *scanner) feed(data []byte) {
	s.buf = append(s.buf, data...)
}

// next extracts one frame from the accumulator, or reports ok=false
// if more bytes are needed. A non-nil error means a frame-shaped
// header was found but failed integrity checks; the scanner has
// already resynced past it and the caller may call next again.
func (s *scanner) next() (Frame, bool, error) {
	for {
		if len(s.buf) < headerSize {
			return Frame{}, false, nil
		}
		if s.buf[5] != headerXOR(s.buf) {
			s.buf = s.buf[1:]
			continue
		}
		length := int(s.buf[2])<<8 | int(s.buf[3])
		hasCRC := Flag(s.buf[4]&0x0F)&FlagCRC != 0
		total := headerSize + length
		if hasCRC {
			total += crcSize
		}
		if len(s.buf) < total {
			return Frame{}, false, nil
		}
		candidate := s.buf[:total]
		f, err := decodeFrame(candidate)
		if err != nil {
			s.buf = s.buf[1:]
			return Frame{}, false, err
		}
		s.buf = s.buf[total:]
		return f, true, nil
	}
}
