package capture

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens devices through the PortAudio library.
type PortAudio struct{}

type paDevice struct {
	stream *portaudio.Stream
	buf    []int16
}

// Open initializes PortAudio and opens the default input stream. The
// matching Terminate happens in Close.
func (PortAudio) Open(sampleRate, channels, frames int) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	buf := make([]int16, frames*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), frames, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &paDevice{stream: stream, buf: buf}, nil
}

func (d *paDevice) Start() error { return d.stream.Start() }

func (d *paDevice) Read() ([]int16, error) {
	if err := d.stream.Read(); err != nil {
		return nil, err
	}
	return d.buf, nil
}

func (d *paDevice) Stop() error { return d.stream.Stop() }

func (d *paDevice) Close() error {
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}

// SystemPermissions treats the presence of a default input device as
// authorization and opens settings by running a configured command.
type SystemPermissions struct {
	SettingsCommand string
}

func (p SystemPermissions) MicrophoneAuthorized() bool {
	if err := portaudio.Initialize(); err != nil {
		return false
	}
	defer portaudio.Terminate()
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil && dev.MaxInputChannels > 0
}

func (p SystemPermissions) OpenSettings() error {
	args := strings.Fields(p.SettingsCommand)
	if len(args) == 0 {
		return fmt.Errorf("no settings command configured")
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	go cmd.Wait()
	return nil
}
