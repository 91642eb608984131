package ui

import "github.com/charmbracelet/bubbles/textinput"

// formField is one stop in a modal form's tab order. Text fields carry
// their input so focus moves the cursor with it; choice fields leave it nil.
type formField struct {
	id    string
	input *textinput.Model
}

// formFocus rotates focus across the fields of a modal form.
type formFocus struct {
	fields []formField
	idx    int
}

// newFormFocus focuses the first field.
func newFormFocus(fields ...formField) *formFocus {
	f := &formFocus{fields: fields}
	f.apply()
	return f
}

// Current returns the id of the focused field, or "" for an empty form.
func (f *formFocus) Current() string {
	if len(f.fields) == 0 {
		return ""
	}
	return f.fields[f.idx].id
}

// Is reports whether id is focused.
func (f *formFocus) Is(id string) bool {
	return f.Current() == id
}

// Move shifts focus by delta fields, wrapping at both ends.
func (f *formFocus) Move(delta int) string {
	if n := len(f.fields); n > 0 {
		f.idx = ((f.idx+delta)%n + n) % n
		f.apply()
	}
	return f.Current()
}

// Set focuses id. It returns false when the form has no such field.
func (f *formFocus) Set(id string) bool {
	for i, fld := range f.fields {
		if fld.id == id {
			f.idx = i
			f.apply()
			return true
		}
	}
	return false
}

// apply focuses the input of the current field and blurs every other one.
func (f *formFocus) apply() {
	for i, fld := range f.fields {
		if fld.input == nil {
			continue
		}
		if i == f.idx {
			fld.input.Focus()
		} else {
			fld.input.Blur()
		}
	}
}
