package domain

import (
	"time"
)

// User is an identity that can act on the ledger.
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Customer owns accounts. It embeds the profile of the user it was onboarded
// as; ownership is held on Account.OwnerID, not here.
type Customer struct {
	User

	IdentityRef   string
	FirstName     string
	LastName      string
	PostalAddress string
	BirthDate     *time.Time
}

// DisplayName returns the name shown to other customers.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}
