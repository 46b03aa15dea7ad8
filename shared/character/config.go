package character

// MovementConfig contains all character movement tuning values. Speeds are in
// units per second, accelerations in units per second squared, response rates
// are exponential-decay rates per second.
type MovementConfig struct {
	// Grounded movement
	WalkSpeed      float64 `mapstructure:"walkSpeed"`
	WalkResponse   float64 `mapstructure:"walkResponse"`
	SprintSpeed    float64 `mapstructure:"sprintSpeed"`
	CrouchSpeed    float64 `mapstructure:"crouchSpeed"`
	CrouchResponse float64 `mapstructure:"crouchResponse"`

	// Air movement
	AirSpeed        float64 `mapstructure:"airSpeed"`
	AirAcceleration float64 `mapstructure:"airAcceleration"`

	// Jumping and gravity
	JumpSpeed          float64 `mapstructure:"jumpSpeed"`
	CoyoteTime         float64 `mapstructure:"coyoteTime"`
	JumpSustainGravity float64 `mapstructure:"jumpSustainGravity"` // fraction of gravity while holding jump and ascending
	Gravity            float64 `mapstructure:"gravity"`

	// Slide mechanics
	SlideStartSpeed        float64 `mapstructure:"slideStartSpeed"`
	SlideEndSpeed          float64 `mapstructure:"slideEndSpeed"`
	SlideFriction          float64 `mapstructure:"slideFriction"`
	SlideSteerAcceleration float64 `mapstructure:"slideSteerAcceleration"`
	SlideGravity           float64 `mapstructure:"slideGravity"`

	// Capsule dimensions
	Radius       float64 `mapstructure:"radius"`
	StandHeight  float64 `mapstructure:"standHeight"`
	CrouchHeight float64 `mapstructure:"crouchHeight"`
}

// DefaultMovementConfig returns the tuning the game ships with.
func DefaultMovementConfig() MovementConfig {
	return MovementConfig{
		WalkSpeed:      20,
		WalkResponse:   25,
		SprintSpeed:    28,
		CrouchSpeed:    7,
		CrouchResponse: 20,

		AirSpeed:        15,
		AirAcceleration: 20,

		JumpSpeed:          20,
		CoyoteTime:         0.2,
		JumpSustainGravity: 0.4,
		Gravity:            -90,

		SlideStartSpeed:        25,
		SlideEndSpeed:          15,
		SlideFriction:          0.8,
		SlideSteerAcceleration: 5,
		SlideGravity:           -90,

		Radius:       0.5,
		StandHeight:  2,
		CrouchHeight: 1,
	}
}

// StandCapsule is the capsule of a standing character.
func (c MovementConfig) StandCapsule() Capsule {
	return Capsule{Radius: c.Radius, Height: c.StandHeight, YOffset: c.StandHeight * 0.5}
}

// CrouchCapsule is the capsule of a crouching or sliding character.
func (c MovementConfig) CrouchCapsule() Capsule {
	return Capsule{Radius: c.Radius, Height: c.CrouchHeight, YOffset: c.CrouchHeight * 0.5}
}
