package models

import "slices"

// User is an alumni directory entry. PasswordHash is never serialized to clients.
type User struct {
	ID                 string   `json:"_id" bson:"_id"`
	Name               string   `json:"name" bson:"name"`
	Email              string   `json:"email" bson:"email"`
	GraduationYear     int      `json:"graduationYear" bson:"graduation_year"`
	Photo              string   `json:"photo" bson:"photo"`
	PasswordHash       string   `json:"-" bson:"password_hash"`
	Connections        []string `json:"connections" bson:"connections"`
	PendingConnections []string `json:"pendingConnections" bson:"pending_connections"`
}

// IsConnectedTo reports whether id is among u's confirmed connections.
func (u *User) IsConnectedTo(id string) bool {
	return slices.Contains(u.Connections, id)
}

// HasPendingFrom reports whether id is waiting for u to accept a request.
func (u *User) HasPendingFrom(id string) bool {
	return slices.Contains(u.PendingConnections, id)
}

// Normalize replaces nil relationship sets with empty ones so they encode as [].
func (u *User) Normalize() {
	if u.Connections == nil {
		u.Connections = []string{}
	}
	if u.PendingConnections == nil {
		u.PendingConnections = []string{}
	}
}
