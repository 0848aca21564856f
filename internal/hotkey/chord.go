// Package hotkey parses the toggle key chord and binds it through whichever
// backend the session supports: an X11 passive grab, the desktop portal's
// GlobalShortcuts interface, or a shortcut scoped to the panel window.
package hotkey

import (
	"fmt"
	"strings"
)

// Modifier is a set of chord modifiers.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

var modifierNames = []struct {
	mod    Modifier
	label  string
	gtk    string
	portal string
}{
	{ModCtrl, "Ctrl", "<Control>", "CTRL"},
	{ModShift, "Shift", "<Shift>", "SHIFT"},
	{ModAlt, "Alt", "<Alt>", "ALT"},
	{ModSuper, "Super", "<Super>", "LOGO"},
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"ctl":     ModCtrl,
	"primary": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"mod1":    ModAlt,
	"super":   ModSuper,
	"logo":    ModSuper,
	"win":     ModSuper,
	"meta":    ModSuper,
	"mod4":    ModSuper,
}

type namedKey struct {
	label  string // Display form
	gtk    string // GDK key name
	keysym uint32
}

var namedKeys = map[string]namedKey{
	"space":     {"Space", "space", 0x0020},
	"return":    {"Return", "Return", 0xff0d},
	"enter":     {"Return", "Return", 0xff0d},
	"escape":    {"Escape", "Escape", 0xff1b},
	"esc":       {"Escape", "Escape", 0xff1b},
	"tab":       {"Tab", "Tab", 0xff09},
	"backspace": {"BackSpace", "BackSpace", 0xff08},
	"insert":    {"Insert", "Insert", 0xff63},
	"delete":    {"Delete", "Delete", 0xffff},
	"home":      {"Home", "Home", 0xff50},
	"end":       {"End", "End", 0xff57},
	"pageup":    {"Page_Up", "Page_Up", 0xff55},
	"pagedown":  {"Page_Down", "Page_Down", 0xff56},
	"page_up":   {"Page_Up", "Page_Up", 0xff55},
	"page_down": {"Page_Down", "Page_Down", 0xff56},
	"grave":     {"`", "grave", 0x0060},
	"`":         {"`", "grave", 0x0060},
	"minus":     {"-", "minus", 0x002d},
	"-":         {"-", "minus", 0x002d},
	"equal":     {"=", "equal", 0x003d},
	"=":         {"=", "equal", 0x003d},
	"comma":     {",", "comma", 0x002c},
	",":         {",", "comma", 0x002c},
	"period":    {".", "period", 0x002e},
	".":         {".", "period", 0x002e},
	"slash":     {"/", "slash", 0x002f},
	"/":         {"/", "slash", 0x002f},
	"semicolon": {";", "semicolon", 0x003b},
	";":         {";", "semicolon", 0x003b},
	"backslash": {"\\", "backslash", 0x005c},
	"\\":        {"\\", "backslash", 0x005c},
}

// Chord is a modifier set plus one key.
type Chord struct {
	Mods Modifier
	key  namedKey
}

// ParseChord parses strings like "Ctrl+Shift+F" or "super+space".
// Modifier names are case-insensitive; at least one modifier is required.
// GTK accelerator syntax ("<Control><Shift>f") is accepted too.
func ParseChord(s string) (Chord, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		return parseAccelerator(s)
	}
	parts := strings.Split(s, "+")
	// A trailing "+" means the key itself is plus.
	if len(parts) >= 2 && parts[len(parts)-1] == "" && parts[len(parts)-2] == "" {
		parts = append(parts[:len(parts)-2], "+")
	}
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("invalid chord %q: need at least one modifier and a key", s)
	}

	var c Chord
	for _, p := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(p))
		mod, ok := modifierAliases[name]
		if !ok {
			return Chord{}, fmt.Errorf("invalid chord %q: unknown modifier %q", s, p)
		}
		c.Mods |= mod
	}

	key, err := parseKey(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return Chord{}, fmt.Errorf("invalid chord %q: %w", s, err)
	}
	c.key = key
	return c, nil
}

func parseAccelerator(s string) (Chord, error) {
	var c Chord
	rest := s
	for strings.HasPrefix(rest, "<") {
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return Chord{}, fmt.Errorf("invalid accelerator %q: unterminated modifier", s)
		}
		name := strings.ToLower(rest[1:end])
		mod, ok := modifierAliases[name]
		if !ok {
			return Chord{}, fmt.Errorf("invalid accelerator %q: unknown modifier %q", s, rest[1:end])
		}
		c.Mods |= mod
		rest = rest[end+1:]
	}
	if c.Mods == 0 {
		return Chord{}, fmt.Errorf("invalid accelerator %q: need at least one modifier", s)
	}
	if strings.EqualFold(rest, "plus") {
		rest = "+"
	}
	key, err := parseKey(rest)
	if err != nil {
		return Chord{}, fmt.Errorf("invalid accelerator %q: %w", s, err)
	}
	c.key = key
	return c, nil
}

// MustParseChord is like ParseChord but panics on error.
func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseKey(k string) (namedKey, error) {
	if k == "" {
		return namedKey{}, fmt.Errorf("missing key")
	}
	if k == "+" {
		return namedKey{"+", "plus", 0x002b}, nil
	}
	lower := strings.ToLower(k)
	if nk, ok := namedKeys[lower]; ok {
		return nk, nil
	}
	if len(k) == 1 {
		ch := lower[0]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			return namedKey{strings.ToUpper(lower), lower, uint32(ch)}, nil
		}
	}
	if lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower, "f%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprintf("f%d", n) == lower {
			label := fmt.Sprintf("F%d", n)
			return namedKey{label, label, 0xffbe + uint32(n-1)}, nil
		}
	}
	return namedKey{}, fmt.Errorf("unknown key %q", k)
}

// Has reports whether the chord includes mod.
func (c Chord) Has(mod Modifier) bool {
	return c.Mods&mod != 0
}

// Keysym returns the X keysym of the chord's key.
func (c Chord) Keysym() uint32 {
	return c.key.keysym
}

// IsZero reports whether the chord is unset.
func (c Chord) IsZero() bool {
	return c.key.keysym == 0
}

// String returns the canonical form, e.g. "Ctrl+Shift+F".
func (c Chord) String() string {
	var b strings.Builder
	for _, m := range modifierNames {
		if c.Has(m.mod) {
			b.WriteString(m.label)
			b.WriteByte('+')
		}
	}
	b.WriteString(c.key.label)
	return b.String()
}

// Accelerator returns the GTK accelerator form, e.g. "<Control><Shift>f".
func (c Chord) Accelerator() string {
	var b strings.Builder
	for _, m := range modifierNames {
		if c.Has(m.mod) {
			b.WriteString(m.gtk)
		}
	}
	b.WriteString(c.key.gtk)
	return b.String()
}

// PortalTrigger returns the XDG shortcut trigger form, e.g. "CTRL+SHIFT+f".
func (c Chord) PortalTrigger() string {
	var b strings.Builder
	for _, m := range modifierNames {
		if c.Has(m.mod) {
			b.WriteString(m.portal)
			b.WriteByte('+')
		}
	}
	b.WriteString(c.key.gtk)
	return b.String()
}
