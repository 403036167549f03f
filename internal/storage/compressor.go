package storage

import (
	"bytes"
	"fmt"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ZstdCompression compresses documents when enabled and always sniffs the
// frame magic on read, so toggling compression never strands old files.
type ZstdCompression struct {
	enabled bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	if !z.enabled {
		return val, nil
	}
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	if !bytes.HasPrefix(val, zstdMagic) {
		return val, nil
	}
	return z.decoder.DecodeAll(val, nil)
}

func (z *ZstdCompression) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

func NewZstdCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{enabled: conf.Persistence.Compress, encoder: encoder, decoder: decoder}, nil
}
