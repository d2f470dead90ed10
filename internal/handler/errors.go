package handler

// Code is a short machine-readable failure code. Clients receive the
// string verbatim in the command reply; handlers fail closed, so a
// returned code means no state was touched.
type Code string

func (c Code) Error() string { return string(c) }

// Validation.
const (
	ErrEmptyName         Code = "empty_name"
	ErrInvalidClass      Code = "invalid_class"
	ErrInvalidMode       Code = "invalid_mode"
	ErrInvalidTier       Code = "invalid_tier"
	ErrInvalidDifficulty Code = "invalid_difficulty"
	ErrInvalidRoom       Code = "invalid_room"
	ErrTooLong           Code = "too_long"
)

// Auth and ownership.
const (
	ErrNotRegistered     Code = "not_registered"
	ErrAlreadyRegistered Code = "already_registered"
	ErrNotOwner          Code = "not_owner"
	ErrNotParticipant    Code = "not_participant"
	ErrNotTank           Code = "not_tank"
	ErrNotHealer         Code = "not_healer"
)

// Lookup.
const (
	ErrNotFound Code = "not_found"
)

// State.
const (
	ErrAlreadyPickedUp Code = "already_picked_up"
	ErrAlreadyDead     Code = "already_dead"
	ErrOnCooldown      Code = "on_cooldown"
	ErrOutOfRange      Code = "out_of_range"
	ErrWrongRoom       Code = "wrong_room"
	ErrInvalidTarget   Code = "invalid_target"
	ErrOutOfBounds     Code = "out_of_bounds"
)

// Protocol-level codes, produced by the dispatcher rather than a handler.
const (
	ErrUnknownCommand Code = "unknown_command"
	ErrBadArgs        Code = "bad_args"
)
