package storage

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/blocktick/internal/world"
	"github.com/annel0/blocktick/internal/world/block"
)

// Ошибки формата чанка
var (
	ErrLayoutMismatch = errors.New("chunk was written under a different block layout")
	ErrCorruptChunk   = errors.New("corrupt chunk blob")
)

// Поля сообщения чанка в protobuf wire-формате
const (
	fieldFingerprint protowire.Number = 1 // fixed64: отпечаток раскладки реестра
	fieldVolume      protowire.Number = 2 // varint: число ячеек
	fieldRuns        protowire.Number = 3 // bytes: пары varint (длина серии, id состояния)
)

// ChunkCodec кодирует плотный массив состояний чанка в сжатый блоб.
// Серии одинаковых id кодируются парами varint, результат сжимается zstd.
type ChunkCodec struct {
	fingerprint  uint64
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewChunkCodec создаёт кодек для раскладки с указанным отпечатком
func NewChunkCodec(fingerprint uint64) (*ChunkCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	return &ChunkCodec{fingerprint: fingerprint, compressor: enc, decompressor: dec}, nil
}

// Fingerprint возвращает отпечаток раскладки кодека
func (c *ChunkCodec) Fingerprint() uint64 {
	return c.fingerprint
}

// Encode упаковывает состояния чанка
func (c *ChunkCodec) Encode(states []block.StateID) []byte {
	var runs []byte
	for i := 0; i < len(states); {
		j := i + 1
		for j < len(states) && states[j] == states[i] {
			j++
		}
		runs = protowire.AppendVarint(runs, uint64(j-i))
		runs = protowire.AppendVarint(runs, uint64(states[i]))
		i = j
	}

	var msg []byte
	msg = protowire.AppendTag(msg, fieldFingerprint, protowire.Fixed64Type)
	msg = protowire.AppendFixed64(msg, c.fingerprint)
	msg = protowire.AppendTag(msg, fieldVolume, protowire.VarintType)
	msg = protowire.AppendVarint(msg, uint64(len(states)))
	msg = protowire.AppendTag(msg, fieldRuns, protowire.BytesType)
	msg = protowire.AppendBytes(msg, runs)

	return c.compressor.EncodeAll(msg, nil)
}

// Decode распаковывает блоб. Блоб другой раскладки даёт ErrLayoutMismatch.
func (c *ChunkCodec) Decode(data []byte) ([]block.StateID, error) {
	msg, err := c.decompressor.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}

	var (
		fingerprint    uint64
		hasFingerprint bool
		volume         uint64
		runs           []byte
	)
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, protowire.ParseError(n))
		}
		msg = msg[n:]

		switch {
		case num == fieldFingerprint && typ == protowire.Fixed64Type:
			fingerprint, n = protowire.ConsumeFixed64(msg)
			hasFingerprint = true
		case num == fieldVolume && typ == protowire.VarintType:
			volume, n = protowire.ConsumeVarint(msg)
		case num == fieldRuns && typ == protowire.BytesType:
			runs, n = protowire.ConsumeBytes(msg)
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, protowire.ParseError(n))
		}
		msg = msg[n:]
	}

	if !hasFingerprint || fingerprint != c.fingerprint {
		return nil, fmt.Errorf("%w: stored %016x, current %016x", ErrLayoutMismatch, fingerprint, c.fingerprint)
	}
	if volume != world.ChunkVolume {
		return nil, fmt.Errorf("%w: volume %d", ErrCorruptChunk, volume)
	}

	states := make([]block.StateID, 0, world.ChunkVolume)
	for len(runs) > 0 {
		length, n := protowire.ConsumeVarint(runs)
		if n < 0 {
			return nil, fmt.Errorf("%w: run length", ErrCorruptChunk)
		}
		runs = runs[n:]
		id, n := protowire.ConsumeVarint(runs)
		if n < 0 {
			return nil, fmt.Errorf("%w: run id", ErrCorruptChunk)
		}
		runs = runs[n:]

		if length == 0 || length > world.ChunkVolume-uint64(len(states)) {
			return nil, fmt.Errorf("%w: run overflow", ErrCorruptChunk)
		}
		for k := uint64(0); k < length; k++ {
			states = append(states, block.StateID(id))
		}
	}
	if len(states) != world.ChunkVolume {
		return nil, fmt.Errorf("%w: %d states", ErrCorruptChunk, len(states))
	}
	return states, nil
}

// Close освобождает ресурсы zstd
func (c *ChunkCodec) Close() {
	c.compressor.Close()
	c.decompressor.Close()
}

// layoutRecord кодирует отпечаток раскладки для метаданных базы
func layoutRecord(fingerprint uint64) []byte {
	return protowire.AppendFixed64(nil, fingerprint)
}
