package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"tonegrid/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	keyboards   bool // also attach non-Launchpad inputs as keyboards
	ignore      []string
}

// NewDeviceManager creates a new device manager. Inputs whose names
// contain any of ignore (case-insensitive) are skipped, e.g. the port the
// MIDI tone sink plays into.
func NewDeviceManager(keyboards bool, ignore ...string) *DeviceManager {
	lowered := make([]string, 0, len(ignore))
	for _, s := range ignore {
		if s != "" {
			lowered = append(lowered, strings.ToLower(s))
		}
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		keyboards:   keyboards,
		ignore:      lowered,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	var inPorts []drivers.In
	var outPorts []drivers.Out
	select {
	case result := <-ch:
		inPorts = result.inPorts
		outPorts = result.outPorts
	case <-time.After(3 * time.Second):
		debug.Log("devices", "port scan timed out")
		return
	case <-ctx.Done():
		return
	}

	seenIDs := make(map[string]bool)

	for _, inPort := range inPorts {
		id := inPort.String()
		kind := classifyPort(id, dm.keyboards, dm.ignore)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var c Controller
		var err error
		switch kind {
		case ControllerLaunchpad:
			c, err = NewLaunchpadController(id, inPort, matchingOut(id, outPorts))
		case ControllerKeyboard:
			c, err = NewKeyboardController(id, inPort)
		}
		if err != nil {
			debug.Log("devices", "open %s failed: %v", id, err)
			continue
		}
		debug.Log("devices", "connected %s (%s)", id, kind)

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()

		dm.publish(ctx, DeviceEvent{Type: DeviceConnected, Controller: c, ID: id})
	}

	// Check for disconnects
	dm.mu.Lock()
	var gone []string
	for id, c := range dm.controllers {
		if !seenIDs[id] {
			c.Close()
			delete(dm.controllers, id)
			gone = append(gone, id)
		}
	}
	dm.mu.Unlock()

	for _, id := range gone {
		debug.Log("devices", "disconnected %s", id)
		dm.publish(ctx, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) publish(ctx context.Context, ev DeviceEvent) {
	select {
	case dm.events <- ev:
	case <-ctx.Done():
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func matchingOut(name string, outs []drivers.Out) drivers.Out {
	name = strings.ToLower(name)
	for _, op := range outs {
		if strings.ToLower(op.String()) == name {
			return op
		}
	}
	return nil
}

// classifyPort decides what an input port name is
func classifyPort(name string, keyboards bool, ignore []string) ControllerType {
	lower := strings.ToLower(name)
	for _, s := range ignore {
		if strings.Contains(lower, s) {
			return ControllerUnknown
		}
	}
	if isLaunchpad(lower) {
		return ControllerLaunchpad
	}
	// DAW/Launchpad secondary ports and system thru ports are not keyboards
	if strings.Contains(lower, "launchpad") || strings.Contains(lower, "through") || strings.Contains(lower, "thru") {
		return ControllerUnknown
	}
	if keyboards {
		return ControllerKeyboard
	}
	return ControllerUnknown
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
