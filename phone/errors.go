package phone

import "errors"

// ErrInvalidState is returned when answer()/hangup() is called against
// a Call in a state that disallows it.
var ErrInvalidState = errors.New("phone: operation not valid in current call state")
