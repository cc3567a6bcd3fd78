package inject

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	verrors "vaibvoice/internal/errors"
)

type fakeKeyboard struct {
	log    *[]string
	failOn string
	typed  []string
}

func (k *fakeKeyboard) step(name string) error {
	*k.log = append(*k.log, name)
	if name == k.failOn {
		return errors.New("synthetic failure")
	}
	return nil
}

func (k *fakeKeyboard) SelectAll() error { return k.step("select-all") }
func (k *fakeKeyboard) Backspace() error { return k.step("backspace") }
func (k *fakeKeyboard) Paste() error     { return k.step("paste") }
func (k *fakeKeyboard) Type(s string) error {
	k.typed = append(k.typed, s)
	return k.step("type")
}

type fakeClipboard struct {
	log     *[]string
	content string
	writes  []string
}

func (c *fakeClipboard) Read() (string, error) { return c.content, nil }
func (c *fakeClipboard) Write(text string) error {
	*c.log = append(*c.log, "clipboard:"+text)
	c.writes = append(c.writes, text)
	c.content = text
	return nil
}

func newTestInjector(failOn string) (*Injector, *fakeKeyboard, *fakeClipboard, *[]string) {
	var log []string
	kb := &fakeKeyboard{log: &log, failOn: failOn}
	clip := &fakeClipboard{log: &log, content: "previous"}
	inj := New(kb, clip, nil)
	inj.sleep = func(time.Duration) {}
	return inj, kb, clip, &log
}

func TestReplaceFocusedTextOrder(t *testing.T) {
	inj, _, clip, log := newTestInjector("")

	require.NoError(t, inj.ReplaceFocusedText(context.Background(), "Hello world."))
	require.Equal(t, []string{
		"select-all",
		"backspace",
		"clipboard:Hello world.",
		"paste",
		"clipboard:previous",
	}, *log)
	require.Equal(t, "previous", clip.content)
}

func TestReplaceFocusedTextFailure(t *testing.T) {
	inj, _, clip, log := newTestInjector("backspace")

	err := inj.ReplaceFocusedText(context.Background(), "text")
	require.True(t, verrors.Is(err, verrors.ErrInjectionFailed), "got %v", err)
	require.Equal(t, []string{"select-all", "backspace"}, *log)
	require.Empty(t, clip.writes)
}

func TestTypeIncrementallyChunks(t *testing.T) {
	inj, kb, _, _ := newTestInjector("")
	var pauses []time.Duration
	inj.sleep = func(d time.Duration) { pauses = append(pauses, d) }

	require.NoError(t, inj.TypeIncrementally(context.Background(), "hello", time.Millisecond))
	require.Equal(t, []string{"he", "ll", "o"}, kb.typed)
	require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}, pauses)
}

func TestTypeIncrementallyFailure(t *testing.T) {
	inj, kb, _, _ := newTestInjector("type")

	err := inj.TypeIncrementally(context.Background(), "hello", 0)
	require.True(t, verrors.Is(err, verrors.ErrInjectionFailed), "got %v", err)
	require.Equal(t, []string{"he"}, kb.typed)
}

func TestChunks(t *testing.T) {
	require.Empty(t, Chunks("", 2))
	require.Equal(t, []string{"ab", "c"}, Chunks("abc", 2))
	require.Equal(t, []string{"hé", "ll", "ö"}, Chunks("héllö", 2))
	require.Equal(t, []string{"a", "b"}, Chunks("ab", 0))
}
