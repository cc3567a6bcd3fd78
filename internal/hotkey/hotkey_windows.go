//go:build windows

package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"syscall"
	"time"
	"unsafe"
)

const (
	whKeyboardLL  = 13
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmQuit        = 0x0012
	llkhfInjected = 0x10
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// vkNames maps Windows virtual-key codes to key names. The low-level hook
// reports sided modifier codes.
var vkNames = buildVKNames()

func buildVKNames() map[uint32]string {
	m := map[uint32]string{
		0x08: "backspace",
		0x09: "tab",
		0x0D: "enter",
		0x14: "caps_lock",
		0x1B: "esc",
		0x20: "space",
		0x25: "left",
		0x26: "up",
		0x27: "right",
		0x28: "down",
		0xA0: "shift_l",
		0xA1: "shift_r",
		0xA2: "ctrl_l",
		0xA3: "ctrl_r",
		0xA4: "alt_l",
		0xA5: "alt_r",
		0x5B: "cmd_l",
		0x5C: "cmd_r",
	}
	for ch := 'A'; ch <= 'Z'; ch++ {
		m[uint32(ch)] = string(ch - 'A' + 'a')
	}
	for ch := '0'; ch <= '9'; ch++ {
		m[uint32(ch)] = string(ch)
	}
	for n := 1; n <= 24; n++ {
		m[0x70+uint32(n-1)] = "f" + strconv.Itoa(n)
	}
	return m
}

// Listen installs a WH_KEYBOARD_LL hook and reports every key edge. Keys are
// passed through to applications; injected events are ignored. The hook is
// removed and the channel closed when ctx is cancelled.
func Listen(ctx context.Context, log *slog.Logger, debug bool) (<-chan Edge, error) {
	if log == nil {
		log = slog.Default()
	}
	out := make(chan Edge, 256)
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(out)

		user32 := syscall.NewLazyDLL("user32.dll")
		kernel32 := syscall.NewLazyDLL("kernel32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procGetMessageW := user32.NewProc("GetMessageW")
		procPostThreadMessageW := user32.NewProc("PostThreadMessageW")
		procGetCurrentThreadId := kernel32.NewProc("GetCurrentThreadId")

		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) >= 0 {
				k := (*kbdllhookstruct)(unsafe.Pointer(lParam))
				if k.flags&llkhfInjected == 0 {
					if name, ok := vkNames[k.vkCode]; ok {
						msg := uint32(wParam)
						down := msg == wmKeyDown || msg == wmSysKeyDown
						up := msg == wmKeyUp || msg == wmSysKeyUp
						if down || up {
							if debug {
								log.Debug("key event", slog.String("key", name), slog.Bool("down", down), slog.Int("vk", int(k.vkCode)))
							}
							// The hook must return quickly; drop rather than block.
							select {
							case out <- Edge{Key: name, Down: down}:
							default:
								log.Warn("key edge dropped", slog.String("key", name))
							}
						}
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		tid, _, _ := procGetCurrentThreadId.Call()
		errCh <- nil
		log.Info("low-level keyboard hook installed")

		go func() {
			<-ctx.Done()
			procPostThreadMessageW.Call(tid, wmQuit, 0, 0)
		}()

		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			Pt_x    int32
			Pt_y    int32
		}
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 {
				log.Error("GetMessageW error; exiting low-level hook loop")
				break
			}
			if ret == 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(hook)
		log.Info("low-level keyboard hook uninstalled")
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return out, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout installing low-level hook")
	}
}
