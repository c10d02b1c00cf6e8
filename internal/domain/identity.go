package domain

// Identity is the session identity: either a guest or an authenticated user.
type Identity struct {
	UserID string
}

// Guest returns the unauthenticated identity.
func Guest() Identity {
	return Identity{}
}

// Authenticated returns the identity of a signed-in user.
func Authenticated(userID string) Identity {
	return Identity{UserID: userID}
}

func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user:" + i.UserID
}
