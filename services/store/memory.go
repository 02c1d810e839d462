package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPersistence is an in-process Persistence used for local development
// and tests. Document IDs are sequential rather than random.
type MemoryPersistence struct {
	mu     sync.Mutex
	users  map[string]User // keyed by doc ID
	ships  map[string]Ship // keyed by doc ID
	nextID int
}

var _ Persistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		users: make(map[string]User),
		ships: make(map[string]Ship),
	}
}

func (m *MemoryPersistence) newDocID() string {
	m.nextID++
	return fmt.Sprintf("doc-%04d", m.nextID)
}

func (m *MemoryPersistence) CreateUser(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.DocID = m.newDocID()
	m.users[u.DocID] = u
	return u, nil
}

func (m *MemoryPersistence) SetUserFields(ctx context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for docID, u := range m.users {
		if u.ID != id {
			continue
		}
		applyUserFields(&u, fields)
		m.users[docID] = u
		return nil
	}
	return ErrUserNotFound
}

func (m *MemoryPersistence) SetUserShipping(ctx context.Context, docID string, shipping []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[docID]
	if !ok {
		return ErrUserNotFound
	}
	u.Shipping = shipping
	m.users[docID] = u
	return nil
}

func (m *MemoryPersistence) UserByID(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *MemoryPersistence) UserByDocID(ctx context.Context, docID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[docID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryPersistence) UserExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryPersistence) AllUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MemoryPersistence) CreateShip(ctx context.Context, s Ship) (Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.DocID = m.newDocID()
	m.ships[s.DocID] = s
	return s, nil
}

func (m *MemoryPersistence) SetShipShippers(ctx context.Context, docID string, shippers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ships[docID]
	if !ok {
		return ErrShipNotFound
	}
	s.Shippers = shippers
	m.ships[docID] = s
	return nil
}

func (m *MemoryPersistence) ShipByID(ctx context.Context, id string) (Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.ships {
		if s.ID == id {
			return s, nil
		}
	}
	return Ship{}, ErrShipNotFound
}

func (m *MemoryPersistence) ShipByDocID(ctx context.Context, docID string) (Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ships[docID]
	if !ok {
		return Ship{}, ErrShipNotFound
	}
	return s, nil
}

func (m *MemoryPersistence) ShipByMemberKey(ctx context.Context, key string) (Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.ships {
		if s.MemberKey == key {
			return s, nil
		}
	}
	return Ship{}, ErrShipNotFound
}

func (m *MemoryPersistence) ShipExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.ships {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryPersistence) ShipExistsByMemberKey(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.ships {
		if s.MemberKey == key {
			return true, nil
		}
	}
	return false, nil
}

func applyUserFields(u *User, fields map[string]any) {
	if v, ok := fields["username"].(string); ok {
		u.Username = v
	}
	if v, ok := fields["avatar"].(string); ok {
		u.Avatar = v
	}
	if v, ok := fields["discriminator"].(string); ok {
		u.Discriminator = v
	}
	if v, ok := fields["publicFlags"].(int64); ok {
		u.PublicFlags = v
	}
	if v, ok := fields["locale"].(string); ok {
		u.Locale = v
	}
	if v, ok := fields["premiumType"].(int64); ok {
		u.PremiumType = v
	}
}
