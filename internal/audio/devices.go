package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrNoDevice marks every microphone problem that prevents a session from starting.
var ErrNoDevice = errors.New("microphone unavailable")

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source and an optional fallback notice.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := Connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return devicesFromInfos(infos, defaultSource.ID()), nil
}

func devicesFromInfos(infos pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return devices
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
// Every failure wraps ErrNoDevice.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	return pickDevice(devices, input, fallback)
}

func pickDevice(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no input sources found", ErrNoDevice)
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	primary := findDevice(devices, input)
	if primary == nil {
		if input == "" {
			return Selection{}, fmt.Errorf("%w: default source is unavailable", ErrNoDevice)
		}
		return Selection{}, fmt.Errorf("%w: audio.input %q did not match any device", ErrNoDevice, input)
	}
	if usable(*primary) {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alt := findDevice(devices, fallback)
	if alt == nil {
		if fallback != "" {
			return Selection{}, fmt.Errorf("%w: input %q is %s and fallback %q not found", ErrNoDevice, primary.ID, reason, fallback)
		}
		return Selection{}, fmt.Errorf("%w: input %q is %s and no default source exists", ErrNoDevice, primary.ID, reason)
	}
	if alt.Muted {
		return Selection{}, fmt.Errorf("%w: fallback source %q is muted", ErrNoDevice, alt.ID)
	}
	if !alt.Available {
		return Selection{}, fmt.Errorf("%w: fallback source %q is not available", ErrNoDevice, alt.ID)
	}

	return Selection{
		Device:   *alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; using %q", primary.ID, reason, alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

// findDevice returns the default device for an empty term, else the first match.
func findDevice(devices []Device, term string) *Device {
	for i := range devices {
		if term == "" && devices[i].Default {
			return &devices[i]
		}
		if term != "" && deviceMatches(devices[i], term) {
			return &devices[i]
		}
	}
	return nil
}

func normalizeTerm(raw string) string {
	term := strings.ToLower(strings.TrimSpace(raw))
	if term == "default" {
		return ""
	}
	return term
}

func usable(d Device) bool {
	return d.Available && !d.Muted
}

func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func sourceAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	if len(info.Ports) == 0 {
		return true
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// unknown=0, no=1, yes=2
			return port.Available != 1
		}
	}
	return true
}
