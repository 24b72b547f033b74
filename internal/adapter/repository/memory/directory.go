package memory

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// Directory implements usecase.IdentityResolver, usecase.CustomerDirectory
// and usecase.DirectoryWriter.
type Directory struct {
	store *Store
}

// NewDirectory creates a new Directory.
func NewDirectory(store *Store) *Directory {
	return &Directory{store: store}
}

// CreateUser stores user. IDs and usernames are unique.
func (d *Directory) CreateUser(ctx context.Context, user *domain.User) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	if _, ok := d.store.users[user.ID]; ok {
		return domain.ErrDuplicateIdentity
	}
	if _, ok := d.store.byUsername[user.Username]; ok {
		return domain.ErrDuplicateIdentity
	}

	c := *user
	d.store.users[user.ID] = &c
	d.store.byUsername[user.Username] = user.ID
	return nil
}

// CreateCustomer stores customer under its user ID.
func (d *Directory) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	if _, ok := d.store.customers[customer.ID]; ok {
		return domain.ErrDuplicateIdentity
	}

	c := *customer
	d.store.customers[customer.ID] = &c
	return nil
}

// ResolveUsername returns the user registered as username.
func (d *Directory) ResolveUsername(ctx context.Context, username string) (*domain.User, error) {
	defer d.store.rlock(ctx)()

	id, ok := d.store.byUsername[username]
	if !ok {
		return nil, domain.ErrUnknownUser
	}
	c := *d.store.users[id]
	return &c, nil
}

// GetByID returns the user with id.
func (d *Directory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer d.store.rlock(ctx)()

	u, ok := d.store.users[id]
	if !ok {
		return nil, domain.ErrUnknownUser
	}
	c := *u
	return &c, nil
}

// GetCustomer returns the customer with id.
func (d *Directory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	defer d.store.rlock(ctx)()

	cust, ok := d.store.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	c := *cust
	return &c, nil
}
