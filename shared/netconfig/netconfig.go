// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must have zero dependencies on rendering,
// physics or transport libraries so the dedicated server binary stays headless.
package netconfig

// Stance is the posture of a character. It is orthogonal to being grounded or
// airborne.
type Stance int

const (
	StanceStand Stance = iota
	StanceCrouch
	StanceSlide
)

var stanceNames = map[Stance]string{
	StanceStand:  "stand",
	StanceCrouch: "crouch",
	StanceSlide:  "slide",
}

func (s Stance) String() string {
	if name, ok := stanceNames[s]; ok {
		return name
	}
	return "unknown"
}

// CrouchInput is the per-tick crouch intent. Crouch is a toggle: a Toggle
// input flips the held crouch request, None leaves it as it was.
type CrouchInput int

const (
	CrouchNone CrouchInput = iota
	CrouchToggle
)

func (c CrouchInput) String() string {
	if c == CrouchToggle {
		return "toggle"
	}
	return "none"
}

// ClipID identifies a sound clip in the client's audio catalog.
type ClipID string

const (
	ClipNone ClipID = ""
)
