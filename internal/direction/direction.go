// Package direction classifies text layout direction and resolves manual
// overrides chosen in the viewers.
package direction

import "strings"

// Direction is a text layout orientation.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

// Mode is the viewer direction setting.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeLTR  Mode = "ltr"
	ModeRTL  Mode = "rtl"
)

// Classify returns RTL when text contains any character from the Hebrew,
// Arabic, Syriac, Arabic Supplement or Arabic Extended-A blocks, otherwise
// LTR.
func Classify(text string) Direction {
	for _, r := range text {
		if isRTLRune(r) {
			return RTL
		}
	}
	return LTR
}

func isRTLRune(r rune) bool {
	switch {
	case r >= 0x0590 && r <= 0x05FF:
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x0700 && r <= 0x074F:
		return true
	case r >= 0x0750 && r <= 0x077F:
		return true
	case r >= 0x08A0 && r <= 0x08FF:
		return true
	default:
		return false
	}
}

// ParseMode maps user input to a Mode, falling back to auto.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLTR:
		return ModeLTR
	case ModeRTL:
		return ModeRTL
	default:
		return ModeAuto
	}
}

// Resolve picks the effective direction for a mode and detected direction.
func Resolve(mode Mode, detected Direction) Direction {
	switch mode {
	case ModeLTR:
		return LTR
	case ModeRTL:
		return RTL
	default:
		if detected == RTL {
			return RTL
		}
		return LTR
	}
}

// Label renders the badge text shown next to the direction toggle.
func Label(mode Mode, detected Direction) string {
	if mode == ModeLTR || mode == ModeRTL {
		return "Set to " + strings.ToUpper(string(mode))
	}
	if detected == RTL {
		return "Auto (RTL)"
	}
	return "Auto (LTR)"
}

// Next cycles auto -> ltr -> rtl -> auto for single-key toggles.
func (m Mode) Next() Mode {
	switch m {
	case ModeAuto:
		return ModeLTR
	case ModeLTR:
		return ModeRTL
	default:
		return ModeAuto
	}
}
