package compose

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/RyanBlaney/genesis-map/palette"
)

func TestBinaryRoundTrip(t *testing.T) {
	effects := Compose(fullRequest())

	var buf bytes.Buffer
	if err := WriteBinary(&buf, effects); err != nil {
		t.Fatalf("WriteBinary() error = %v", err)
	}
	if want := 4 + RecordSize*len(effects); buf.Len() != want {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), want)
	}

	got, err := ReadBinary(&buf)
	if err != nil {
		t.Fatalf("ReadBinary() error = %v", err)
	}
	if len(got) != len(effects) {
		t.Fatalf("read %d effects, want %d", len(got), len(effects))
	}
	for i := range effects {
		want, g := effects[i], got[i]
		if g.Type != want.Type || g.Layer != want.Layer || g.StartMs != want.StartMs || g.DurationMs != want.DurationMs {
			t.Errorf("effect %d header = %+v, want %+v", i, g, want)
		}
		if math.Abs(g.Intensity-want.Intensity) > 1.0/65535 || math.Abs(g.Speed-want.Speed) > 1.0/65535 {
			t.Errorf("effect %d intensity/speed = %v/%v, want %v/%v", i, g.Intensity, g.Speed, want.Intensity, want.Speed)
		}
		if g.Colors[0] != want.FirstColor(palette.White) {
			t.Errorf("effect %d color = %v", i, g.Colors[0])
		}
	}
}

func TestBinaryLayout(t *testing.T) {
	effects := []Effect{{
		Type:       Strobe,
		Layer:      Accent,
		StartMs:    0x01020304,
		DurationMs: 1000,
		Intensity:  1,
		Speed:      1.5, // clamped
	}}
	var buf bytes.Buffer
	if err := WriteBinary(&buf, effects); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if binary.LittleEndian.Uint32(b[0:4]) != 1 {
		t.Errorf("count = %v", b[0:4])
	}
	if b[4] != 2 || b[5] != 3 {
		t.Errorf("type/layer = %d/%d, want 2/3", b[4], b[5])
	}
	if !bytes.Equal(b[6:10], []byte{4, 3, 2, 1}) {
		t.Errorf("start bytes = %v, want little-endian", b[6:10])
	}
	if binary.LittleEndian.Uint16(b[14:16]) != 65535 || binary.LittleEndian.Uint16(b[16:18]) != 65535 {
		t.Errorf("intensity/speed = %v", b[14:18])
	}
	if !bytes.Equal(b[18:21], []byte{255, 255, 255}) {
		t.Errorf("color = %v, want white default", b[18:21])
	}
}

func TestBinaryEmptyAndTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got, err := ReadBinary(bytes.NewReader(buf.Bytes())); err != nil || len(got) != 0 {
		t.Errorf("ReadBinary(empty) = %v, %v", got, err)
	}

	buf.Reset()
	if err := WriteBinary(&buf, []Effect{{Type: Pulse}, {Type: Wave}}); err != nil {
		t.Fatal(err)
	}
	short := buf.Bytes()[:buf.Len()-5]
	if _, err := ReadBinary(bytes.NewReader(short)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated stream error = %v, want unexpected EOF", err)
	}

	if err := WriteBinary(io.Discard, []Effect{{Type: EffectType(42)}}); err == nil {
		t.Error("expected error for invalid effect type")
	}
}

func TestWriteJSON(t *testing.T) {
	effects := []Effect{{
		Type:       Explosion,
		Layer:      Accent,
		StartMs:    16000,
		DurationMs: 2000,
		Intensity:  1,
		Speed:      0.9,
		Colors:     []palette.RGB{palette.White},
		Params:     map[string]any{"strobe_count": 3},
	}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, effects, DefaultFirmwareConfig()); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Version  string           `json:"version"`
		LEDCount int              `json:"led_count"`
		FPS      int              `json:"fps"`
		Effects  []map[string]any `json:"effects"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Version != "1.0" || doc.LEDCount != 144 || doc.FPS != 60 {
		t.Errorf("header = %+v", doc)
	}
	e := doc.Effects[0]
	if e["type"] != "explosion" || e["layer"] != 3.0 || e["start_ms"] != 16000.0 {
		t.Errorf("effect = %v", e)
	}
	colors, ok := e["colors"].([]any)
	if !ok || len(colors) != 1 {
		t.Fatalf("colors = %v", e["colors"])
	}
	if rgb, ok := colors[0].([]any); !ok || len(rgb) != 3 || rgb[0] != 255.0 {
		t.Errorf("color = %v, want an RGB triple", colors[0])
	}

	var back FirmwareDocument
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Effects[0].Type != Explosion {
		t.Errorf("decoded type = %s", back.Effects[0].Type)
	}
}

func TestToFirmwareCommands(t *testing.T) {
	effects := []Effect{
		{Type: Sparkle, Layer: Melody, StartMs: 500, DurationMs: 500, Intensity: 0.6, Speed: 0.6},
		{Type: Explosion, Layer: Accent, StartMs: 500, Speed: 0.9, Colors: dropColors},
		{Type: Pulse, Layer: Rhythm, StartMs: 500, DurationMs: 400, Intensity: 0.8, Speed: 0.7},
		{Type: Wave, Layer: Rhythm, StartMs: 100, Speed: 0.6, Intensity: 0.5, Params: map[string]any{"direction": "inward"}},
		{Type: Strobe, Layer: Accent, StartMs: 2500, DurationMs: 1000},
		{Type: Rainbow, Layer: Background, StartMs: 0, Speed: 0.5, Intensity: 0.7},
	}
	cmds := ToFirmwareCommands(effects, FirmwareConfig{LEDCount: 60, FPS: 30})

	wantOrder := []string{"rainbow_effect", "wave_effect", "pulse_effect", "sparkle_effect", "explosion_effect", "strobe_effect"}
	if len(cmds) != len(wantOrder) {
		t.Fatalf("got %d commands", len(cmds))
	}
	for i, name := range wantOrder {
		if cmds[i].Command != name {
			t.Errorf("command %d = %s, want %s", i, cmds[i].Command, name)
		}
	}

	if args := cmds[0].Args; args[1] != 30 {
		t.Errorf("rainbow wave length = %v, want default 30", args[1])
	}
	if args := cmds[1].Args; args[0] != "inward" {
		t.Errorf("wave direction = %v", args[0])
	}
	if args := cmds[2].Args; args[3] != palette.White {
		t.Errorf("pulse color = %v, want white default", args[3])
	}
	if args := cmds[4].Args; args[0] != 30 {
		t.Errorf("explosion center = %v, want half the strip", args[0])
	}
	if args := cmds[5].Args; args[0] != 10 || args[1] != 1000 {
		t.Errorf("strobe args = %v", args)
	}
	if cmds[3].Priority != int(Melody) || len(cmds[3].Args) != 3 {
		t.Errorf("generic command = %+v", cmds[3])
	}
}

func TestEffectTypeNames(t *testing.T) {
	for i, kind := range EffectTypes {
		if int(kind) != i {
			t.Errorf("%s has code %d, want %d", kind, kind, i)
		}
		parsed, err := ParseEffectType(kind.String())
		if err != nil || parsed != kind {
			t.Errorf("ParseEffectType(%q) = %v, %v", kind.String(), parsed, err)
		}
	}
	if _, err := ParseEffectType("laser"); err == nil {
		t.Error("expected error for unknown effect type")
	}
}
