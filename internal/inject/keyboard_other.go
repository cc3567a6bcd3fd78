//go:build !darwin

package inject

import (
	"runtime"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/micmonay/keybd_event"
)

type systemKeyboard struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// NewSystemKeyboard returns a Keyboard that sends Ctrl shortcuts.
func NewSystemKeyboard() (Keyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	// The uinput device needs a moment before it accepts events.
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &systemKeyboard{kb: kb}, nil
}

func (k *systemKeyboard) press(ctrl bool, key int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kb.Clear()
	k.kb.HasCTRL(ctrl)
	k.kb.SetKeys(key)
	return k.kb.Launching()
}

func (k *systemKeyboard) SelectAll() error { return k.press(true, keybd_event.VK_A) }

func (k *systemKeyboard) Backspace() error { return k.press(false, keybd_event.VK_BACKSPACE) }

func (k *systemKeyboard) Paste() error { return k.press(true, keybd_event.VK_V) }

func (k *systemKeyboard) Type(s string) error {
	robotgo.TypeStr(s)
	return nil
}
