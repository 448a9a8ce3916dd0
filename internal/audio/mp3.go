package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog"
)

// mp3BytesPerFrame is the decoded frame size: 16-bit little-endian stereo.
const mp3BytesPerFrame = 4

// MP3Device plays MP3 payloads through the default PortAudio output stream.
// The payload stays opaque to everything above this type; the exact duration
// is measured from the decoded sample count and reported via OnPlaying just
// before the first buffer is written.
type MP3Device struct {
	mu sync.Mutex

	bufferFrames int
	logger       zerolog.Logger

	state PlaybackState
	stop  chan struct{}
}

// NewMP3Device initializes PortAudio and returns a playback device.
func NewMP3Device(bufferFrames int, logger zerolog.Logger) (*MP3Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &MP3Device{
		bufferFrames: bufferFrames,
		logger:       logger.With().Str("component", "mp3-device").Logger(),
	}, nil
}

// Close tears down PortAudio. The device must be idle.
func (d *MP3Device) Close() error {
	d.Stop()
	return portaudio.Terminate()
}

// State returns the current playback state.
func (d *MP3Device) State() PlaybackState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins asynchronous decode and playback of one payload. Any previous
// payload is stopped first; its OnFinished has already fired or will fire
// with an abort before the new one starts producing sound.
func (d *MP3Device) Start(payload []byte, cb PlaybackCallbacks) error {
	d.Stop()

	d.mu.Lock()
	d.state = PlaybackLoading
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	go d.run(payload, cb, stop)
	return nil
}

// Stop aborts the current payload. Idempotent.
func (d *MP3Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

func (d *MP3Device) run(payload []byte, cb PlaybackCallbacks, stop <-chan struct{}) {
	finish := func(state PlaybackState, err error) {
		d.mu.Lock()
		d.state = state
		d.mu.Unlock()
		if cb.OnFinished != nil {
			cb.OnFinished(err)
		}
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		finish(PlaybackError, fmt.Errorf("decode mp3: %w", err))
		return
	}
	duration := float64(dec.Length()) / mp3BytesPerFrame / float64(dec.SampleRate())

	out := make([]int16, d.bufferFrames*2)
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(dec.SampleRate()), d.bufferFrames, &out)
	if err != nil {
		finish(PlaybackError, fmt.Errorf("open output stream: %w", err))
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		finish(PlaybackError, fmt.Errorf("start output stream: %w", err))
		return
	}
	defer stream.Stop()

	d.mu.Lock()
	d.state = PlaybackPlaying
	d.mu.Unlock()
	d.logger.Debug().Float64("duration", duration).Int("sample_rate", dec.SampleRate()).Msg("payload playing")
	if cb.OnPlaying != nil {
		cb.OnPlaying(duration)
	}

	buf := make([]byte, len(out)*2)
	for {
		select {
		case <-stop:
			finish(PlaybackEnded, nil)
			return
		default:
		}

		n, err := io.ReadFull(dec, buf)
		if n > 0 {
			for i := 0; i < n/2; i++ {
				out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
			for i := n / 2; i < len(out); i++ {
				out[i] = 0
			}
			if werr := stream.Write(); werr != nil {
				finish(PlaybackError, fmt.Errorf("write output stream: %w", werr))
				return
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			finish(PlaybackEnded, nil)
			return
		}
		if err != nil {
			finish(PlaybackError, fmt.Errorf("decode mp3 stream: %w", err))
			return
		}
	}
}
