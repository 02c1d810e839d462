package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	userCollection = "users"
	shipCollection = "ships"
)

type firestorePersistence struct {
	db *firestore.Client
}

var _ Persistence = (*firestorePersistence)(nil)

func NewFirestorePersistence(db *firestore.Client) Persistence {
	return &firestorePersistence{db: db}
}

func (f *firestorePersistence) CreateUser(ctx context.Context, u User) (User, error) {
	ref := f.db.Collection(userCollection).NewDoc()
	u.DocID = ref.ID
	if _, err := ref.Set(ctx, u); err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (f *firestorePersistence) SetUserFields(ctx context.Context, id string, fields map[string]any) error {
	docs, err := f.db.Collection(userCollection).
		Where("id", "==", id).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrUserNotFound
	}
	if _, err := docs[0].Ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return nil
}

func (f *firestorePersistence) SetUserShipping(ctx context.Context, docID string, shipping []string) error {
	_, err := f.db.Collection(userCollection).Doc(docID).Set(ctx, map[string]any{
		"shipping": shipping,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user shipping: %w", err)
	}
	return nil
}

func (f *firestorePersistence) UserByID(ctx context.Context, id string) (User, error) {
	return f.userWhere(ctx, "id", id)
}

func (f *firestorePersistence) UserByDocID(ctx context.Context, docID string) (User, error) {
	return f.userWhere(ctx, "docId", docID)
}

func (f *firestorePersistence) userWhere(ctx context.Context, field, value string) (User, error) {
	iter := f.db.Collection(userCollection).
		Where(field, "==", value).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return User{}, err
		}
		user := User{}
		if err := doc.DataTo(&user); err != nil {
			return User{}, err
		}
		return user, nil
	}
	return User{}, ErrUserNotFound
}

func (f *firestorePersistence) UserExists(ctx context.Context, id string) (bool, error) {
	docs, err := f.db.Collection(userCollection).
		Where("id", "==", id).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func (f *firestorePersistence) AllUsers(ctx context.Context) ([]User, error) {
	docs, err := f.db.Collection(userCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	users := make([]User, len(docs))
	for i, doc := range docs {
		if err := doc.DataTo(&users[i]); err != nil {
			return nil, fmt.Errorf("failed to convert doc %s: %w", doc.Ref.ID, err)
		}
	}
	return users, nil
}

func (f *firestorePersistence) CreateShip(ctx context.Context, s Ship) (Ship, error) {
	ref := f.db.Collection(shipCollection).NewDoc()
	s.DocID = ref.ID
	if _, err := ref.Set(ctx, s); err != nil {
		return Ship{}, fmt.Errorf("failed to create ship: %w", err)
	}
	return s, nil
}

func (f *firestorePersistence) SetShipShippers(ctx context.Context, docID string, shippers []string) error {
	_, err := f.db.Collection(shipCollection).Doc(docID).Set(ctx, map[string]any{
		"shippers": shippers,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update ship shippers: %w", err)
	}
	return nil
}

func (f *firestorePersistence) ShipByID(ctx context.Context, id string) (Ship, error) {
	return f.shipWhere(ctx, "id", id)
}

func (f *firestorePersistence) ShipByDocID(ctx context.Context, docID string) (Ship, error) {
	return f.shipWhere(ctx, "docId", docID)
}

func (f *firestorePersistence) ShipByMemberKey(ctx context.Context, key string) (Ship, error) {
	return f.shipWhere(ctx, "memberKey", key)
}

func (f *firestorePersistence) shipWhere(ctx context.Context, field, value string) (Ship, error) {
	iter := f.db.Collection(shipCollection).
		Where(field, "==", value).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return Ship{}, err
		}
		ship := Ship{}
		if err := doc.DataTo(&ship); err != nil {
			return Ship{}, err
		}
		return ship, nil
	}
	return Ship{}, ErrShipNotFound
}

func (f *firestorePersistence) ShipExists(ctx context.Context, id string) (bool, error) {
	return f.shipExistsWhere(ctx, "id", id)
}

func (f *firestorePersistence) ShipExistsByMemberKey(ctx context.Context, key string) (bool, error) {
	return f.shipExistsWhere(ctx, "memberKey", key)
}

func (f *firestorePersistence) shipExistsWhere(ctx context.Context, field, value string) (bool, error) {
	docs, err := f.db.Collection(shipCollection).
		Where(field, "==", value).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}
