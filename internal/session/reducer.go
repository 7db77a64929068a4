package session

// Reduce applies ev to s and returns the next state. It is a pure
// function: no I/O, no clock reads, no mutation of s. Every event below
// clears IsRestoring and IsLoading, so the restore phase cannot outlive
// the first terminal event.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case RestoreSuccess:
		if e.User == nil {
			return State{}
		}
		return State{IsAuthenticated: true, User: e.User}

	case RestoreEmpty:
		return State{}

	case SignInSuccess:
		if e.User == nil {
			return State{}
		}
		return State{IsAuthenticated: true, User: e.User}

	case SignInFailure:
		message := e.Message
		if message == "" {
			message = "Sign-in failed. Please try again."
		}
		return State{Err: &StateError{Code: ErrorCodeSignInFailed, Message: message}}

	case TokenExpired:
		return State{Err: &StateError{
			Code:    ErrorCodeExpired,
			Message: "Your session has expired. Please sign in again.",
			At:      e.At,
		}}

	case Logout:
		return State{}
	}

	return s
}
