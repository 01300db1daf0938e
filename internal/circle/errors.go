package circle

import "errors"

// Engine failure codes. Operations validate everything up front and return
// one of these before touching the store.
var (
	ErrAlreadyInitialized = errors.New("circle engine already initialized")
	ErrNotInitialized     = errors.New("circle engine not initialized")
	ErrUnauthorized       = errors.New("caller not authorized for this operation")
	ErrCircleNotFound     = errors.New("circle not found")
	ErrInvalidConfig      = errors.New("invalid circle configuration")
	ErrCircleNotForming   = errors.New("circle is not accepting members")
	ErrCircleNotActive    = errors.New("circle is not active")
	ErrCircleFull         = errors.New("circle is at capacity")
	ErrAlreadyMember      = errors.New("already a member of this circle")
	ErrNotMember          = errors.New("not a member of this circle")
	ErrAlreadyContributed = errors.New("already contributed this round")
	ErrRoundIncomplete    = errors.New("round contributions incomplete")
	ErrNotEnoughMembers   = errors.New("fewer than three members")
	ErrInviteNotFound     = errors.New("invite code not found")
)
