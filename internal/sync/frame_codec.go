// Package sync готовит кадры состояния мира для внешних наблюдателей:
// компактное представление снимка, сжатое zstd.
package sync

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/bucket-brigade/internal/brigade"
)

// Заголовок кадра: сигнатура и версия формата
var frameMagic = [3]byte{'B', 'B', 'F'}

const frameVersion byte = 1

// ErrBadFrame - кадр повреждён или другой версии
var ErrBadFrame = errors.New("некорректный кадр")

// FireCell - клетка огня в кадре
type FireCell struct {
	X int     `json:"x"`
	Y int     `json:"y"`
	G float32 `json:"g"`
	S uint8   `json:"s"` // 0 ожидает, 1 горит, 2 гаснет
}

// Point - позиция с флагом или уровнем
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	V float32 `json:"v,omitempty"`
}

// Frame - облегчённая копия снимка для отрисовки
type Frame struct {
	Tick     uint64     `json:"t"`
	Elapsed  float64    `json:"e"`
	Rows     int        `json:"r"`
	Cols     int        `json:"c"`
	Fires    []FireCell `json:"f"`
	Buckets  []Point    `json:"b"` // V - наполненность
	Bots     []Point    `json:"a"` // V - 1, если агент несёт ведро
	Choppers []Point    `json:"h"` // V - высота
}

// FrameFromSnapshot сворачивает снимок в кадр
func FrameFromSnapshot(snap brigade.Snapshot) Frame {
	f := Frame{
		Tick:     snap.Tick,
		Elapsed:  snap.Elapsed,
		Rows:     snap.Rows,
		Cols:     snap.Cols,
		Fires:    make([]FireCell, 0, len(snap.Fires)),
		Buckets:  make([]Point, 0, len(snap.Buckets)),
		Bots:     make([]Point, 0, len(snap.Bots)),
		Choppers: make([]Point, 0, len(snap.Choppers)),
	}
	for _, fire := range snap.Fires {
		f.Fires = append(f.Fires, FireCell{
			X: fire.Coord.X,
			Y: fire.Coord.Y,
			G: float32(fire.Gradient),
			S: fireStatusCode(fire.Status),
		})
	}
	for _, b := range snap.Buckets {
		f.Buckets = append(f.Buckets, Point{X: float32(b.Position.X), Y: float32(b.Position.Y), V: float32(b.Gradient)})
	}
	for _, b := range snap.Bots {
		p := Point{X: float32(b.Position.X), Y: float32(b.Position.Y)}
		if !b.Carrying.IsNull() {
			p.V = 1
		}
		f.Bots = append(f.Bots, p)
	}
	for _, c := range snap.Choppers {
		f.Choppers = append(f.Choppers, Point{X: float32(c.Position.X), Y: float32(c.Position.Y), V: float32(c.Altitude)})
	}
	return f
}

func fireStatusCode(status string) uint8 {
	switch status {
	case brigade.Active.String():
		return 1
	case brigade.PendingRemoval.String():
		return 2
	default:
		return 0
	}
}

// FrameCodec кодирует кадры в сжатый вид и обратно
type FrameCodec interface {
	Encode(f Frame) ([]byte, error)
	Decode(payload []byte) (Frame, error)
}

// zstdCodec: заголовок + JSON, сжатый zstd.
// Encoder и Decoder из klauspost безопасны для параллельных EncodeAll/DecodeAll.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCodec создаёт кодек с уровнем сжатия по умолчанию
func NewZstdCodec() (FrameCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Encode(f Frame) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(raw)/4+len(frameMagic)+1)
	out = append(out, frameMagic[:]...)
	out = append(out, frameVersion)
	return c.enc.EncodeAll(raw, out), nil
}

func (c *zstdCodec) Decode(payload []byte) (Frame, error) {
	header := len(frameMagic) + 1
	if len(payload) < header || [3]byte(payload[:3]) != frameMagic {
		return Frame{}, ErrBadFrame
	}
	if payload[3] != frameVersion {
		return Frame{}, fmt.Errorf("%w: версия %d", ErrBadFrame, payload[3])
	}

	raw, err := c.dec.DecodeAll(payload[header:], nil)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	return f, nil
}
