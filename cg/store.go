package cg

import "context"

// Store is the read side of the legacy persistence layer.
//
// Lookups for account-level entities (secrets) ignore appID. Templates owned
// by GlobalAppID are visible from every application.
// Missing entities are reported with errors.ErrNotFound.
type Store interface {
	GetByAppAndID(ctx context.Context, t EntityType, appID, id string) (Entity, error)
	GetByName(ctx context.Context, t EntityType, appID, name string) (Entity, error)
	ListByApp(ctx context.Context, t EntityType, appID string) ([]Entity, error)
}

// Visible reports whether an entity may be read through appID.
func Visible(e Entity, appID string) bool {
	owner := e.OwnerAppID()
	switch {
	case owner == "", owner == GlobalAppID, appID == "":
		return true
	case e.EntityRef().Type == Application:
		return e.EntityRef().ID == appID
	default:
		return owner == appID
	}
}
