package conditioning

import (
	"fmt"
	"strings"
)

// Profile selects the strength of enhancement and binarization.
type Profile int

const (
	// Gentle is tuned for clean scans.
	Gentle Profile = iota

	// Aggressive is tuned for noisy or unevenly lit photos.
	Aggressive
)

func (p Profile) String() string {
	switch p {
	case Gentle:
		return "gentle"
	case Aggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// ParseProfile parses a profile name. The empty string selects Gentle.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gentle":
		return Gentle, nil
	case "aggressive":
		return Aggressive, nil
	}
	return Gentle, fmt.Errorf("unknown conditioning profile %q (want gentle or aggressive)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Profile) UnmarshalText(text []byte) error {
	parsed, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
