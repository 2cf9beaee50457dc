package dtos

// Actor is the authenticated principal behind a request or realtime
// connection. Role is always taken from the verified identity, never from a
// client payload.
type Actor struct {
	UserID      string
	Username    string
	DisplayName string
	Role        string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}
