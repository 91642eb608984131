package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// leaderSeq is how the leader key is written in sequences and hints.
const leaderSeq = "SPC"

// Action is one dashboard command. It is reachable by a single key, by a
// sequence after SPC, or both.
type Action struct {
	// Key is the single key, e.g. "t". Empty for leader-only actions.
	Key string
	// Leader is the sequence typed after SPC, e.g. "m t".
	Leader string
	Desc   string
	// Msg is sent when the action fires.
	Msg tea.Msg
	// Modes restricts the action; empty means every mode.
	Modes []AppMode
}

func (a Action) availableIn(mode AppMode) bool {
	if len(a.Modes) == 0 {
		return true
	}
	for _, m := range a.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (a Action) cmd() tea.Cmd {
	msg := a.Msg
	return func() tea.Msg { return msg }
}

// Keymap resolves keys to actions for the current mode. Groups label the
// first key of nested leader sequences, e.g. "m" opens "Model".
type Keymap struct {
	actions []Action
	groups  map[string]string
}

// NewKeymap builds a keymap from a table of actions.
func NewKeymap(groups map[string]string, actions ...Action) *Keymap {
	return &Keymap{actions: actions, groups: groups}
}

// Single returns the action bound to a single key in mode.
func (k *Keymap) Single(s string, mode AppMode) (Action, bool) {
	for _, a := range k.actions {
		if a.Key != "" && a.Key == s && a.availableIn(mode) {
			return a, true
		}
	}
	return Action{}, false
}

// Leader returns the action bound to the keys typed after SPC in mode.
func (k *Keymap) Leader(keys []string, mode AppMode) (Action, bool) {
	seq := strings.Join(keys, " ")
	for _, a := range k.actions {
		if a.Leader != "" && a.Leader == seq && a.availableIn(mode) {
			return a, true
		}
	}
	return Action{}, false
}

// extends reports whether a leader sequence available in mode continues
// past keys.
func (k *Keymap) extends(keys []string, mode AppMode) bool {
	for _, a := range k.actions {
		fields := strings.Fields(a.Leader)
		if len(fields) > len(keys) && hasPrefix(fields, keys) && a.availableIn(mode) {
			return true
		}
	}
	return false
}

// LeaderHints lists the keys that may follow SPC plus keys in mode, sorted
// by key. A key that opens a group is described by the group label.
func (k *Keymap) LeaderHints(keys []string, mode AppMode) []key.Binding {
	hints := make(map[string]string)
	for _, a := range k.actions {
		fields := strings.Fields(a.Leader)
		if len(fields) <= len(keys) || !hasPrefix(fields, keys) || !a.availableIn(mode) {
			continue
		}
		next := fields[len(keys)]
		switch {
		case len(fields) > len(keys)+1:
			label, ok := k.groups[next]
			if !ok {
				label = next + "…"
			}
			hints[next] = label
		case hints[next] == "":
			hints[next] = a.Desc
		}
	}

	names := make([]string, 0, len(hints))
	for n := range hints {
		names = append(names, n)
	}
	sort.Strings(names)

	bindings := make([]key.Binding, 0, len(names))
	for _, n := range names {
		bindings = append(bindings, key.NewBinding(key.WithKeys(n), key.WithHelp(n, hints[n])))
	}
	return bindings
}

func hasPrefix(fields, prefix []string) bool {
	if len(prefix) > len(fields) {
		return false
	}
	for i := range prefix {
		if fields[i] != prefix[i] {
			return false
		}
	}
	return true
}

// KeyHandler tracks leader state and turns keys into action commands.
type KeyHandler struct {
	Keymap *Keymap
	// LeaderKey is the tea.KeyMsg string that starts a sequence. Bubble Tea
	// reports space as " ".
	LeaderKey string
	// Waiting is true between SPC and the end of a sequence.
	Waiting bool
	// Buffer holds the keys typed after SPC.
	Buffer []string
}

// NewKeyHandler creates a handler with SPC as leader.
func NewKeyHandler(km *Keymap) *KeyHandler {
	return &KeyHandler{Keymap: km, LeaderKey: " "}
}

// Sequence renders the pending sequence, e.g. "SPC m".
func (h *KeyHandler) Sequence() string {
	return strings.Join(append([]string{leaderSeq}, h.Buffer...), " ")
}

func (h *KeyHandler) reset() {
	h.Waiting = false
	h.Buffer = nil
}

// Handle processes a key in mode. consumed reports whether the key belonged
// to the keymap; cmd sends the resolved action's message, if any.
func (h *KeyHandler) Handle(msg tea.KeyMsg, mode AppMode) (consumed bool, cmd tea.Cmd) {
	s := msg.String()

	if s == "esc" {
		if h.Waiting {
			h.reset()
			return true, nil
		}
		return false, nil
	}

	if !h.Waiting {
		if s == h.LeaderKey {
			h.Waiting = true
			h.Buffer = nil
			return true, nil
		}
		if a, ok := h.Keymap.Single(s, mode); ok {
			return true, a.cmd()
		}
		return false, nil
	}

	h.Buffer = append(h.Buffer, s)
	if a, ok := h.Keymap.Leader(h.Buffer, mode); ok {
		h.reset()
		return true, a.cmd()
	}
	if !h.Keymap.extends(h.Buffer, mode) {
		h.reset()
	}
	return true, nil
}
