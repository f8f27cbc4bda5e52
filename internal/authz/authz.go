// Package authz holds the ownership rules that gate room and message mutations.
package authz

import "github.com/vovakirdan/studybud-server/internal/store"

// Principal is the authenticated user a request acts on behalf of.
type Principal struct {
	UserID    int64
	Username  string
	SessionID string
}

// CanModifyRoom reports whether p may update or delete room. Only the host may.
func CanModifyRoom(p *Principal, room *store.Room) bool {
	return p != nil && room != nil && p.UserID == room.HostID
}

// CanDeleteMessage reports whether p may delete msg. Only the author may.
func CanDeleteMessage(p *Principal, msg *store.Message) bool {
	return p != nil && msg != nil && p.UserID == msg.UserID
}
