package compose

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RyanBlaney/genesis-map/palette"
)

// RecordSize is the byte length of one effect in the binary export
const RecordSize = 17

// binaryRecord is the packed little-endian layout of one effect
type binaryRecord struct {
	Type       uint8
	Layer      uint8
	StartMs    uint32
	DurationMs uint32
	Intensity  uint16
	Speed      uint16
	Color      [3]uint8
}

func scale16(v float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	return uint16(math.Max(0, math.Min(1, v)) * math.MaxUint16)
}

func clampU32(v int) uint32 {
	return uint32(min(max(v, 0), math.MaxUint32))
}

// WriteBinary packs effects for embedded players: a uint32 count, then per
// effect the type code, layer, start and duration in ms, intensity and speed
// scaled to uint16, and the first color (white when there is none)
func WriteBinary(w io.Writer, effects []Effect) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(effects))); err != nil {
		return fmt.Errorf("write effect count: %w", err)
	}
	for i, e := range effects {
		if !e.Type.Valid() {
			return fmt.Errorf("effect %d: invalid type %d", i, uint8(e.Type))
		}
		rec := binaryRecord{
			Type:       uint8(e.Type),
			Layer:      uint8(e.Layer),
			StartMs:    clampU32(e.StartMs),
			DurationMs: clampU32(e.DurationMs),
			Intensity:  scale16(e.Intensity),
			Speed:      scale16(e.Speed),
			Color:      e.FirstColor(palette.White),
		}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write effect %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadBinary decodes a WriteBinary stream. Intensity and speed come back
// quantized to 1/65535 and only the first color survives.
func ReadBinary(r io.Reader) ([]Effect, error) {
	br := bufio.NewReader(r)
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read effect count: %w", err)
	}

	effects := make([]Effect, 0, min(int(count), 1<<16))
	for i := range int(count) {
		var rec binaryRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read effect %d of %d: %w", i, count, err)
		}
		t := EffectType(rec.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("effect %d: invalid type %d", i, rec.Type)
		}
		effects = append(effects, Effect{
			Type:       t,
			Layer:      Layer(rec.Layer),
			StartMs:    int(rec.StartMs),
			DurationMs: int(rec.DurationMs),
			Intensity:  float64(rec.Intensity) / math.MaxUint16,
			Speed:      float64(rec.Speed) / math.MaxUint16,
			Colors:     []palette.RGB{palette.RGB(rec.Color)},
		})
	}
	return effects, nil
}
