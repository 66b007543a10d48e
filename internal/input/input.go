package input

import (
	"sync"

	"glwindow/internal/gpu"
)

// EventKind classifies a normalized window event.
type EventKind int

const (
	EventOther EventKind = iota
	EventQuit
	EventKey
	EventMouse
)

func (k EventKind) String() string {
	switch k {
	case EventQuit:
		return "quit"
	case EventKey:
		return "key"
	case EventMouse:
		return "mouse"
	}
	return "other"
}

// Key is a physical key code. Values match GLFW key codes.
type Key int

const (
	Key0      Key = 48
	KeyQ      Key = 81
	KeyEscape Key = 256
	KeyRight  Key = 262
	KeyLeft   Key = 263
	KeyDown   Key = 264
	KeyUp     Key = 265
)

// KeyAction is what happened to a key or button.
type KeyAction int

const (
	Release KeyAction = iota
	Press
	Repeat
)

// Event is a window event reduced to what the frame loop cares about.
type Event struct {
	Kind   EventKind
	Key    Key
	Action KeyAction
	// Button is the mouse button for button events, -1 for motion.
	Button int
	X, Y   float64
}

// State is the frame loop state reported by Poll.
type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Action represents a logical action, not a physical key
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionCount // Sentinel value for array sizing
)

// Manager maps physical keys to logical actions and turns a batch of
// events into the next loop state.
type Manager struct {
	mu sync.RWMutex

	// Key to action mapping (one key can map to multiple actions)
	keyToActions map[Key][]Action

	// Current held state (indexed by Action)
	held [ActionCount]bool
}

// NewManager creates a Manager with Escape bound to ActionQuit.
func NewManager() *Manager {
	m := &Manager{keyToActions: make(map[Key][]Action)}
	m.BindKey(KeyEscape, ActionQuit)
	return m
}

// BindKey binds a physical key to a logical action
func (m *Manager) BindKey(key Key, action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if action <= ActionNone || action >= ActionCount {
		return
	}
	m.keyToActions[key] = append(m.keyToActions[key], action)
}

// UnbindKey removes all action bindings for a key
func (m *Manager) UnbindKey(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keyToActions, key)
}

// IsActive returns true if the action is currently being held down
func (m *Manager) IsActive(action Action) bool {
	if action <= ActionNone || action >= ActionCount {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.held[action]
}

// Poll consumes one frame's worth of events and reports the next state:
// Stopped as soon as a quit event or a key bound to ActionQuit is pressed.
// Events after the quit are still applied to key state but change nothing.
func (m *Manager) Poll(events []Event) State {
	state := Running
	for _, ev := range events {
		switch ev.Kind {
		case EventQuit:
			gpu.Logger().Info("quit requested")
			state = Stopped
		case EventKey:
			if m.handleKey(ev) {
				gpu.Logger().Info("quit requested", "key", int(ev.Key))
				state = Stopped
			}
		case EventMouse:
			if ev.Button < 0 {
				gpu.Logger().Debug("mouse moved", "x", ev.X, "y", ev.Y)
			} else {
				gpu.Logger().Debug("mouse button", "button", ev.Button, "pressed", ev.Action != Release)
			}
		}
	}
	return state
}

// handleKey updates held state and reports whether ev triggered ActionQuit.
func (m *Manager) handleKey(ev Event) bool {
	pressed := ev.Action == Press || ev.Action == Repeat
	if ev.Action == Press {
		gpu.Logger().Debug("key pressed", "key", int(ev.Key))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	quit := false
	for _, act := range m.keyToActions[ev.Key] {
		if pressed && act == ActionQuit && !m.held[act] {
			quit = true
		}
		m.held[act] = pressed
	}
	return quit
}
