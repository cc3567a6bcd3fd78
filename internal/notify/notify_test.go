package notify

import "testing"

func TestNotify(t *testing.T) {
	var got []string
	n := New(true, nil)
	n.show = func(title, message string) error {
		got = append(got, title+": "+message)
		return nil
	}
	n.Notify("transcription failed")
	if len(got) != 1 || got[0] != "VaibVoice: transcription failed" {
		t.Fatalf("got %v", got)
	}
}

func TestNotifyDisabled(t *testing.T) {
	n := New(false, nil)
	n.show = func(title, message string) error {
		t.Fatalf("disabled notifier must not show %q", message)
		return nil
	}
	n.Notify("ignored")

	var nilNotifier *Notifier
	nilNotifier.Notify("ignored")
}
