package inject

import "github.com/atotto/clipboard"

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error) { return clipboard.ReadAll() }

func (SystemClipboard) Write(text string) error { return clipboard.WriteAll(text) }
