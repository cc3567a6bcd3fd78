package record

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Stream is an open input stream delivering blocks to a callback.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Device opens input streams. onBlock may be called from a driver thread.
type Device interface {
	Open(sampleRate, channels, framesPerBuffer int, onBlock func([]int16)) (Stream, error)
}

// PortAudio opens the default input device through PortAudio.
type PortAudio struct{}

// Open implements Device.
func (PortAudio) Open(sampleRate, channels, framesPerBuffer int, onBlock func([]int16)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("invalid input device: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, func(in []int16) {
		onBlock(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	return &paStream{stream: stream}, nil
}

type paStream struct {
	stream *portaudio.Stream
	once   sync.Once
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start stream failed: %w", err)
	}
	return nil
}

func (s *paStream) Stop() error {
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.stream.Close()
		_ = portaudio.Terminate()
	})
	return err
}
