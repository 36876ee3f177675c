package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Option is one entry of a select control.
type Option struct {
	Value string
	Label string
}

// Event describes the htmx request a control fires when it changes.
type Event struct {
	Path    string
	Target  string
	Trigger string
	// Sync is an hx-sync value. Empty leaves requests unsynchronised.
	Sync    string
	Vals    map[string]string
}

func (e Event) attrs() string {
	if e.Path == "" {
		return ""
	}
	vals, err := json.Marshal(e.Vals)
	if err != nil {
		vals = []byte("{}")
	}
	target := e.Target
	if target == "" {
		target = "this"
	}
	trigger := e.Trigger
	if trigger == "" {
		trigger = "change"
	}
	attrs := fmt.Sprintf(` hx-post="%s" hx-trigger="%s" hx-target="%s" hx-swap="outerHTML" hx-vals="%s"`,
		templ.EscapeString(e.Path), templ.EscapeString(trigger), templ.EscapeString(target), templ.EscapeString(string(vals)))
	if e.Sync != "" {
		attrs += fmt.Sprintf(` hx-sync="%s"`, templ.EscapeString(e.Sync))
	}
	return attrs
}

// Select renders a select control with an empty placeholder entry.
func Select(name, placeholder string, options []Option, selected string, disabled bool, event Event) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<select name="%s" id="id_%s"%s%s>`, templ.EscapeString(name), templ.EscapeString(name), disabledAttr(disabled), event.attrs())
		fmt.Fprintf(&b, `<option value="">%s</option>`, templ.EscapeString(placeholder))
		for _, option := range options {
			fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`,
				templ.EscapeString(option.Value), selectedAttr(option.Value == selected), templ.EscapeString(option.Label))
		}
		b.WriteString(`</select>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Input renders a single input element. Number inputs accept two decimals.
func Input(inputType, name, value string, disabled bool, event Event) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		step := ""
		if inputType == "number" {
			step = ` step="0.01" min="0"`
		}
		_, err := fmt.Fprintf(w, `<input type="%s" name="%s" id="id_%s" value="%s"%s%s%s>`,
			templ.EscapeString(inputType), templ.EscapeString(name), templ.EscapeString(name),
			templ.EscapeString(value), step, disabledAttr(disabled), event.attrs())
		return err
	})
}

// Hidden renders a hidden input.
func Hidden(name, value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<input type="hidden" name="%s" id="id_%s" value="%s">`,
			templ.EscapeString(name), templ.EscapeString(name), templ.EscapeString(value))
		return err
	})
}

// Button renders a button posting event on click. A button without an event
// submits the enclosing form.
func Button(label string, disabled bool, event Event) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		buttonType := "submit"
		if event.Path != "" {
			buttonType = "button"
			if event.Trigger == "" {
				event.Trigger = "click"
			}
		}
		_, err := fmt.Fprintf(w, `<button type="%s"%s%s>%s</button>`,
			buttonType, disabledAttr(disabled), event.attrs(), templ.EscapeString(label))
		return err
	})
}

// Notice renders a status banner. Nothing is written for an empty message.
func Notice(kind, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if strings.TrimSpace(message) == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<div class="notice notice-%s" role="status">%s</div>`,
			templ.EscapeString(kind), templ.EscapeString(message))
		return err
	})
}

// InlineError renders an error marker under a field.
func InlineError(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if message == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<small class="field-error">%s</small>`, templ.EscapeString(message))
		return err
	})
}

// Label renders a label for the control called name.
func Label(name, text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<label for="id_%s">%s</label>`, templ.EscapeString(name), templ.EscapeString(text))
		return err
	})
}

func selectedAttr(selected bool) string {
	if selected {
		return " selected"
	}
	return ""
}

func disabledAttr(disabled bool) string {
	if disabled {
		return " disabled"
	}
	return ""
}
