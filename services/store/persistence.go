package store

import "context"

// Persistence is the document-store boundary the service runs on. Firestore
// backs it in production; MemoryPersistence backs it in dev and tests.
type Persistence interface {
	CreateUser(ctx context.Context, u User) (User, error)
	SetUserFields(ctx context.Context, id string, fields map[string]any) error
	SetUserShipping(ctx context.Context, docID string, shipping []string) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByDocID(ctx context.Context, docID string) (User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	AllUsers(ctx context.Context) ([]User, error)

	CreateShip(ctx context.Context, s Ship) (Ship, error)
	SetShipShippers(ctx context.Context, docID string, shippers []string) error
	ShipByID(ctx context.Context, id string) (Ship, error)
	ShipByDocID(ctx context.Context, docID string) (Ship, error)
	ShipByMemberKey(ctx context.Context, key string) (Ship, error)
	ShipExists(ctx context.Context, id string) (bool, error)
	ShipExistsByMemberKey(ctx context.Context, key string) (bool, error)
}
