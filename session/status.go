package session

// State is the session controller's view of the session.
type State int

const (
	StateChecking State = iota
	StateLoggedIn
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateLoggedIn:
		return "logged_in"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Route is a start destination for the presentation layer.
type Route string

const (
	RouteLogin Route = "login"
	RouteHome  Route = "home"
)

// Status is what the presentation layer observes.
type Status struct {
	State            State
	StartDestination Route
	Loading          bool
}

func checkingStatus() Status {
	return Status{State: StateChecking, StartDestination: RouteLogin, Loading: true}
}

func loggedInStatus() Status {
	return Status{State: StateLoggedIn, StartDestination: RouteHome}
}

func loggedOutStatus() Status {
	return Status{State: StateLoggedOut, StartDestination: RouteLogin}
}
