// Package compress frames cached payloads with an optional zstd or lz4 block
// compression. Frames are self-describing, so a codec change in the
// configuration never breaks reads of older entries.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Codec uint8

const (
	None Codec = 0
	LZ4  Codec = 1
	Zstd Codec = 2
)

var ErrCorrupt = errors.New("corrupt compressed frame")

// Frame layout: [codec uint8][uncompressed size uint32 LE][data...]
const headerSize = 5

func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown compression %q (want none, lz4 or zstd)", s)
	}
}

func (c Codec) String() string {
	switch c {
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode frames data with codec c. Data that does not shrink below 90% is
// stored uncompressed.
func Encode(c Codec, data []byte) ([]byte, error) {
	var packed []byte
	switch c {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		packed = buf[:n]
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		c, packed = None, data
	}

	out := make([]byte, headerSize+len(packed))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	copy(out[headerSize:], packed)
	return out, nil
}

// Decode reverses Encode whatever codec the frame was written with.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(frame))
	}
	size := binary.LittleEndian.Uint32(frame[1:])
	body := frame[headerSize:]

	switch Codec(frame[0]) {
	case None:
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: size %d, have %d", ErrCorrupt, size, len(body))
		}
		return body, nil
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCorrupt, frame[0])
	}
}
