package hub

import (
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/dictate/internal/errs"
)

// Device describes one PulseAudio input source.
type Device struct {
	ID          string
	Description string
	Default     bool
}

// listDevices enumerates PulseAudio input sources.
func listDevices(client *pulse.Client) ([]Device, error) {
	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// selectDevice applies the hub's device selection policy: prefer the
// first input whose name contains "monitor"; otherwise the default
// input; otherwise the first input at all.
func selectDevice(devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: no audio input devices found", errs.ErrDeviceError)
	}

	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.ID), "monitor") || strings.Contains(strings.ToLower(d.Description), "monitor") {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	return devices[0], nil
}
