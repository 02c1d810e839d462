package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Service is the sole authority for reading, creating and updating users and
// ships. It layers process-wide read-through caches over the document store;
// cache entries are inserted after a persistence write succeeds and are never
// evicted.
type Service interface {
	RegisterUser(ctx context.Context, profile Profile) (*User, error)
	// UpdateUser merge-updates the persisted user and patches any cached copy
	// in place, without a store round-trip. Last write wins.
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByDocID(ctx context.Context, docID string) (*User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	// ListUsers returns all users. Used by the profile refresher.
	ListUsers(ctx context.Context) ([]User, error)

	RegisterShip(ctx context.Context, people []string, shippers []string, createdBy string) (*Ship, error)
	GetShipByID(ctx context.Context, id string) (*Ship, error)
	// GetShipByMembers resolves the ship linking the two member doc IDs,
	// regardless of the order they are given in.
	GetShipByMembers(ctx context.Context, a, b string) (*Ship, error)
	GetShipByDocID(ctx context.Context, docID string) (*Ship, error)
	ShipExists(ctx context.Context, id string) (bool, error)
	ShipExistsByMembers(ctx context.Context, a, b string) (bool, error)
	// ToggleShip flips the user's participation in the ship and returns the
	// updated copies of both.
	ToggleShip(ctx context.Context, user *User, ship *Ship) (*User, *Ship, error)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrShipNotFound = errors.New("ship not found")
)

type service struct {
	db    Persistence
	users *cache[User]
	ships *cache[Ship]
}

var _ Service = (*service)(nil)

func NewService(db Persistence) Service {
	return &service{
		db:    db,
		users: newCache[User](),
		ships: newCache[Ship](),
	}
}

func (s *service) RegisterUser(ctx context.Context, profile Profile) (*User, error) {
	user := User{
		ID:            profile.ID,
		Username:      profile.Username,
		Avatar:        profile.Avatar,
		Discriminator: profile.Discriminator,
		PublicFlags:   profile.PublicFlags,
		Locale:        profile.Locale,
		PremiumType:   profile.PremiumType,
		Shipping:      []string{},
		JoinedAt:      time.Now(),
	}
	created, err := s.db.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.users.Put(created.ID, created)
	return &created, nil
}

func (s *service) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	if err := s.db.SetUserFields(ctx, id, update.fields()); err != nil {
		return nil, err
	}
	if cached, ok := s.users.Get(id); ok {
		update.apply(&cached)
		s.users.Put(id, cached)
		return &cached, nil
	}
	return s.GetUser(ctx, id)
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	if cached, ok := s.users.Get(id); ok {
		return &cached, nil
	}
	user, err := s.db.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.users.Put(user.ID, user)
	return &user, nil
}

func (s *service) GetUserByDocID(ctx context.Context, docID string) (*User, error) {
	if cached, ok := s.users.Find(func(u User) bool { return u.DocID == docID }); ok {
		return &cached, nil
	}
	user, err := s.db.UserByDocID(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.users.Put(user.ID, user)
	return &user, nil
}

func (s *service) UserExists(ctx context.Context, id string) (bool, error) {
	if s.users.Has(id) {
		return true, nil
	}
	return s.db.UserExists(ctx, id)
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	return s.db.AllUsers(ctx)
}

func (s *service) RegisterShip(ctx context.Context, people []string, shippers []string, createdBy string) (*Ship, error) {
	if len(people) != 2 {
		return nil, fmt.Errorf("a ship needs exactly two people, got %d", len(people))
	}
	id, err := s.generateShipID(ctx)
	if err != nil {
		return nil, err
	}
	if shippers == nil {
		shippers = []string{}
	}
	ship := Ship{
		ID:        id,
		People:    people,
		MemberKey: memberKey(people[0], people[1]),
		Shippers:  shippers,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	created, err := s.db.CreateShip(ctx, ship)
	if err != nil {
		return nil, err
	}
	s.ships.Put(created.ID, created)
	return &created, nil
}

// generateShipID draws 16 random bytes and renders them as hex, retrying
// until the ID is unused. Collisions are astronomically unlikely at 128 bits;
// the check exists for correctness, not performance.
func (s *service) generateShipID(ctx context.Context) (string, error) {
	for {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate ship id: %w", err)
		}
		id := hex.EncodeToString(b)
		exists, err := s.ShipExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		log.Warn().Str("id", id).Msg("ship id collision, regenerating")
	}
}

func (s *service) GetShipByID(ctx context.Context, id string) (*Ship, error) {
	if cached, ok := s.ships.Get(id); ok {
		return &cached, nil
	}
	ship, err := s.db.ShipByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.ships.Put(ship.ID, ship)
	return &ship, nil
}

func (s *service) GetShipByMembers(ctx context.Context, a, b string) (*Ship, error) {
	key := memberKey(a, b)
	if cached, ok := s.ships.Find(func(p Ship) bool { return p.MemberKey == key }); ok {
		return &cached, nil
	}
	ship, err := s.db.ShipByMemberKey(ctx, key)
	if err != nil {
		return nil, err
	}
	s.ships.Put(ship.ID, ship)
	return &ship, nil
}

func (s *service) GetShipByDocID(ctx context.Context, docID string) (*Ship, error) {
	if cached, ok := s.ships.Find(func(p Ship) bool { return p.DocID == docID }); ok {
		return &cached, nil
	}
	ship, err := s.db.ShipByDocID(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.ships.Put(ship.ID, ship)
	return &ship, nil
}

func (s *service) ShipExists(ctx context.Context, id string) (bool, error) {
	if s.ships.Has(id) {
		return true, nil
	}
	return s.db.ShipExists(ctx, id)
}

func (s *service) ShipExistsByMembers(ctx context.Context, a, b string) (bool, error) {
	key := memberKey(a, b)
	if _, ok := s.ships.Find(func(p Ship) bool { return p.MemberKey == key }); ok {
		return true, nil
	}
	return s.db.ShipExistsByMemberKey(ctx, key)
}

// ToggleShip removes the user from the ship when they already participate,
// and adds them otherwise. The two writes are not transactional: on the add
// path the user is persisted before the ship, so a failed second write leaves
// the user listing a ship that does not list them back. That mirrors the
// accepted behavior of the product; see DESIGN.md.
func (s *service) ToggleShip(ctx context.Context, user *User, ship *Ship) (*User, *Ship, error) {
	u := *user
	p := *ship

	if slices.Contains(u.Shipping, p.DocID) {
		u.Shipping = remove(u.Shipping, p.DocID)
		p.Shippers = remove(p.Shippers, u.DocID)

		if err := s.db.SetShipShippers(ctx, p.DocID, p.Shippers); err != nil {
			return nil, nil, err
		}
		s.ships.Put(p.ID, p)
		if err := s.db.SetUserShipping(ctx, u.DocID, u.Shipping); err != nil {
			return nil, nil, err
		}
		s.users.Put(u.ID, u)
		return &u, &p, nil
	}

	u.Shipping = appendCopy(u.Shipping, p.DocID)
	if err := s.db.SetUserShipping(ctx, u.DocID, u.Shipping); err != nil {
		return nil, nil, err
	}
	s.users.Put(u.ID, u)

	if !slices.Contains(p.Shippers, u.DocID) {
		p.Shippers = appendCopy(p.Shippers, u.DocID)
		if err := s.db.SetShipShippers(ctx, p.DocID, p.Shippers); err != nil {
			return nil, nil, err
		}
		s.ships.Put(p.ID, p)
	}
	return &u, &p, nil
}

// remove returns a new slice without the given value, preserving order.
func remove(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// appendCopy appends without sharing the original backing array.
func appendCopy(list []string, value string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, value)
}
