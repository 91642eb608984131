// Package ui is the observatory terminal dashboard built on Bubble Tea.
//
// Core abstractions:
//   - View: a screen or major UI region with its own model, update, view (Elm-style)
//   - Overlay: modal views stacked above the current screen with a dismiss key
//   - Keymap / KeyHandler: a table of Actions reachable by single keys and
//     spacemacs-style leader (SPC) sequences, filtered by AppMode
//   - formFocus: rotates focus across the fields of a modal form
//
// AppModel owns all view state. Network calls run as tea.Cmds against a
// Backend and report back as messages; the client-side store in
// internal/store holds the rows every view renders from.
package ui
