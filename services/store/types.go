package store

import (
	"time"

	"github.com/fatih/structs"
)

// User is a registered account, keyed externally by its Discord snowflake ID
// and internally by its Firestore document ID.
type User struct {
	DocID         string    `json:"docId" firestore:"docId"`
	ID            string    `json:"id" firestore:"id"`
	Username      string    `json:"username" firestore:"username"`
	Avatar        string    `json:"avatar" firestore:"avatar"`
	Discriminator string    `json:"discriminator" firestore:"discriminator"`
	PublicFlags   int64     `json:"publicFlags" firestore:"publicFlags"`
	Locale        string    `json:"locale" firestore:"locale"`
	PremiumType   int64     `json:"premiumType" firestore:"premiumType"`
	Shipping      []string  `json:"shipping" firestore:"shipping"`
	JoinedAt      time.Time `json:"joinedAt" firestore:"joinedAt"`
}

// Ship links exactly two users together. People holds the two member document
// IDs in creation order; MemberKey is their canonical form so lookups are
// order-insensitive. Shippers tracks who opted into the ship, independently of
// membership.
type Ship struct {
	DocID     string    `json:"docId" firestore:"docId"`
	ID        string    `json:"id" firestore:"id"`
	People    []string  `json:"people" firestore:"people"`
	MemberKey string    `json:"memberKey" firestore:"memberKey"`
	Shippers  []string  `json:"shippers" firestore:"shippers"`
	CreatedBy string    `json:"createdBy" firestore:"createdBy"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Profile is the slice of an identity-provider profile we persist.
type Profile struct {
	ID            string
	Username      string
	Avatar        string
	Discriminator string
	PublicFlags   int64
	Locale        string
	PremiumType   int64
}

// UserUpdate carries profile attributes for a merge update. Last write wins.
type UserUpdate struct {
	Username      string `structs:"username"`
	Avatar        string `structs:"avatar"`
	Discriminator string `structs:"discriminator"`
	PublicFlags   int64  `structs:"publicFlags"`
	Locale        string `structs:"locale"`
	PremiumType   int64  `structs:"premiumType"`
}

// fields renders the update as a Firestore merge map.
func (u UserUpdate) fields() map[string]any {
	return structs.Map(u)
}

// apply patches a user in memory with the same fields the merge map carries.
func (u UserUpdate) apply(user *User) {
	user.Username = u.Username
	user.Avatar = u.Avatar
	user.Discriminator = u.Discriminator
	user.PublicFlags = u.PublicFlags
	user.Locale = u.Locale
	user.PremiumType = u.PremiumType
}

// memberKey canonicalizes a pair of member document IDs. Both the in-memory
// cache scan and the persisted query match on this key, so the two paths
// cannot disagree on member-set equality.
func memberKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
