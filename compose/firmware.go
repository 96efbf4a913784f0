package compose

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/RyanBlaney/genesis-map/palette"
)

// FirmwareFormatVersion is the version field of the JSON effect export
const FirmwareFormatVersion = "1.0"

// FirmwareDocument is the JSON effect export loaded by the device
type FirmwareDocument struct {
	Version  string   `json:"version"`
	LEDCount int      `json:"led_count"`
	FPS      int      `json:"fps"`
	Effects  []Effect `json:"effects"`
}

// WriteJSON writes the effect list as an indented FirmwareDocument
func WriteJSON(w io.Writer, effects []Effect, cfg FirmwareConfig) error {
	if effects == nil {
		effects = []Effect{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FirmwareDocument{
		Version:  FirmwareFormatVersion,
		LEDCount: cfg.LEDCount,
		FPS:      cfg.FPS,
		Effects:  effects,
	}); err != nil {
		return fmt.Errorf("encode firmware document: %w", err)
	}
	return nil
}

// Command is one call into the device's effect functions. Priority is the
// effect layer, lower runs first at equal timestamps.
type Command struct {
	TimestampMs int    `json:"timestamp_ms"`
	Command     string `json:"command"`
	Args        []any  `json:"args"`
	Priority    int    `json:"priority"`
}

// ToFirmwareCommands maps effects to device calls ordered by timestamp, then
// priority
func ToFirmwareCommands(effects []Effect, cfg FirmwareConfig) []Command {
	commands := make([]Command, 0, len(effects))
	for _, e := range effects {
		cmd := Command{
			TimestampMs: e.StartMs,
			Command:     e.Type.String() + "_effect",
			Priority:    int(e.Layer),
		}
		switch e.Type {
		case Pulse:
			cmd.Args = []any{e.Intensity, e.Speed, e.DurationMs, e.FirstColor(palette.White)}
		case Wave:
			cmd.Args = []any{paramOr(e, "direction", "outward"), e.Speed, e.Intensity, e.FirstColor(palette.RGB{255, 0, 0})}
		case Strobe:
			cmd.Args = []any{paramOr(e, "frequency_hz", 10), e.DurationMs, e.FirstColor(palette.White)}
		case Explosion:
			cmd.Args = []any{cfg.LEDCount / 2, e.Speed, e.Colors}
		case Rainbow:
			cmd.Args = []any{e.Speed, paramOr(e, "wave_length", 30), e.Intensity}
		default:
			cmd.Args = []any{e.Intensity, e.Speed, e.DurationMs}
		}
		commands = append(commands, cmd)
	}

	sort.SliceStable(commands, func(i, j int) bool {
		if commands[i].TimestampMs != commands[j].TimestampMs {
			return commands[i].TimestampMs < commands[j].TimestampMs
		}
		return commands[i].Priority < commands[j].Priority
	})
	return commands
}

func paramOr(e Effect, key string, fallback any) any {
	if v, ok := e.Params[key]; ok {
		return v
	}
	return fallback
}
