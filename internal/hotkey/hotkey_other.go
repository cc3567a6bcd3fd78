//go:build !windows

package hotkey

import (
	"context"
	"log/slog"
	"strconv"

	hook "github.com/robotn/gohook"
)

// vcNames maps libuiohook virtual key codes to key names.
var vcNames = buildVCNames()

func buildVCNames() map[uint16]string {
	m := map[uint16]string{
		0x0001: "esc",
		0x000E: "backspace",
		0x000F: "tab",
		0x001C: "enter",
		0x0039: "space",
		0x003A: "caps_lock",
		0x001D: "ctrl_l",
		0x0E1D: "ctrl_r",
		0x002A: "shift_l",
		0x0036: "shift_r",
		0x0038: "alt_l",
		0x0E38: "alt_r",
		0x0E5B: "cmd_l",
		0x0E5C: "cmd_r",
		0xE048: "up",
		0xE050: "down",
		0xE04B: "left",
		0xE04D: "right",
		0x0057: "f11",
		0x0058: "f12",
		0x005B: "f13",
		0x005C: "f14",
		0x005D: "f15",
		0x0063: "f16",
		0x0064: "f17",
		0x0065: "f18",
		0x0066: "f19",
		0x0067: "f20",
		0x0068: "f21",
		0x0069: "f22",
		0x006A: "f23",
		0x0076: "f24",
	}
	rows := []struct {
		first uint16
		keys  string
	}{
		{0x0002, "1234567890"},
		{0x0010, "qwertyuiop"},
		{0x001E, "asdfghjkl"},
		{0x002C, "zxcvbnm"},
	}
	for _, r := range rows {
		for i, k := range r.keys {
			m[r.first+uint16(i)] = string(k)
		}
	}
	for n := 1; n <= 10; n++ {
		m[0x003B+uint16(n-1)] = "f" + strconv.Itoa(n)
	}
	return m
}

// edgeFromEvent converts a hook event into an Edge. Typed-character events
// and unknown keys are skipped.
func edgeFromEvent(kind uint8, code uint16) (Edge, bool) {
	var down bool
	switch kind {
	case hook.KeyHold:
		down = true
	case hook.KeyUp:
		down = false
	default:
		return Edge{}, false
	}
	name, ok := vcNames[code]
	if !ok {
		return Edge{}, false
	}
	return Edge{Key: name, Down: down}, true
}

// Listen starts the global keyboard hook. Edges are delivered until ctx is
// cancelled, after which the channel is closed.
func Listen(ctx context.Context, log *slog.Logger, debug bool) (<-chan Edge, error) {
	if log == nil {
		log = slog.Default()
	}
	events := hook.Start()
	out := make(chan Edge, 64)

	go func() {
		defer close(out)
		defer hook.End()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				edge, ok := edgeFromEvent(ev.Kind, ev.Keycode)
				if debug {
					log.Debug("key event", slog.Int("kind", int(ev.Kind)), slog.Int("keycode", int(ev.Keycode)), slog.Int("rawcode", int(ev.Rawcode)), slog.String("key", edge.Key))
				}
				if !ok {
					continue
				}
				select {
				case out <- edge:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	log.Info("keyboard hook started")
	return out, nil
}
