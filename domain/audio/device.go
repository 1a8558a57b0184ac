package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/gen2brain/malgo"
)

// Device captures mono float32 frames from the system via miniaudio. With
// loopback enabled it monitors the default output (what the game plays);
// otherwise it records the default microphone.
type Device struct {
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	frames chan Frame
	done   chan struct{}
}

// ErrDeviceClosed is returned from ReadFrame after Close.
var ErrDeviceClosed = errors.New("audio device closed")

// OpenDevice initializes the capture device and starts streaming. frameMs
// controls the block size handed to ReadFrame.
func OpenDevice(sampleRate, frameMs int, loopback bool) (*Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &DeviceError{Op: "init context", Err: err}
	}

	devType := malgo.Capture
	if loopback {
		devType = malgo.Loopback
	}
	cfg := malgo.DefaultDeviceConfig(devType)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	d := &Device{
		ctx:    ctx,
		frames: make(chan Frame, 16),
		done:   make(chan struct{}),
	}

	frameSamples := sampleRate * frameMs / 1000
	if frameSamples <= 0 {
		frameSamples = sampleRate / 33
	}
	pending := make([]float32, 0, frameSamples*2)

	onRecv := func(_, in []byte, frameCount uint32) {
		if len(in) == 0 {
			return
		}
		pending = append(pending, decodeF32(in)...)
		for len(pending) >= frameSamples {
			block := make([]float32, frameSamples)
			copy(block, pending[:frameSamples])
			pending = pending[frameSamples:]
			select {
			case d.frames <- Frame{Samples: block, At: time.Now()}:
			default:
				// Reader is behind; newest data wins, stale audio is useless.
				select {
				case <-d.frames:
				default:
				}
				select {
				case d.frames <- Frame{Samples: block, At: time.Now()}:
				default:
				}
			}
		}
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, &DeviceError{Op: "init device", Err: err}
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, &DeviceError{Op: "start device", Err: err}
	}
	d.dev = dev
	return d, nil
}

// ReadFrame blocks until the next frame. It returns a DeviceError wrapping
// ErrDeviceClosed once the device is closed, and a timeout error if the
// stream stalls (treated as transient by the audio service).
func (d *Device) ReadFrame() (Frame, error) {
	select {
	case f := <-d.frames:
		return f, nil
	case <-d.done:
		return Frame{}, &DeviceError{Op: "read", Err: ErrDeviceClosed}
	case <-time.After(time.Second):
		return Frame{}, &DeviceError{Op: "read", Err: errors.New("frame timeout")}
	}
}

// Close stops the stream and releases the device.
func (d *Device) Close() {
	select {
	case <-d.done:
		return
	default:
	}
	close(d.done)
	if d.dev != nil {
		d.dev.Uninit()
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
	}
}

func decodeF32(in []byte) []float32 {
	n := len(in) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	return out
}
