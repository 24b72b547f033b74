package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bankledger/internal/domain"
)

const (
	insertUser = `INSERT INTO users (id, username, email, created_at) VALUES ($1, $2, $3, $4)`

	selectUserByUsername = `SELECT id, username, email, created_at FROM users WHERE username = $1`

	selectUserByID = `SELECT id, username, email, created_at FROM users WHERE id = $1`

	insertCustomer = `
		INSERT INTO customers (id, identity_ref, first_name, last_name, postal_address, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectCustomerByID = `
		SELECT u.id, u.username, u.email, u.created_at,
			c.identity_ref, c.first_name, c.last_name, c.postal_address, c.birth_date
		FROM customers c
		JOIN users u ON u.id = c.id
		WHERE c.id = $1`
)

// DirectoryRepository stores users and customers. It implements
// usecase.IdentityResolver, usecase.CustomerDirectory and
// usecase.DirectoryWriter.
type DirectoryRepository struct {
	db DBTX
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// CreateUser inserts a new user
func (r *DirectoryRepository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, insertUser, user.ID, user.Username, user.Email, user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdentity
	}
	return err
}

// ResolveUsername retrieves a user by username
func (r *DirectoryRepository) ResolveUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(querier(ctx, r.db).QueryRow(ctx, selectUserByUsername, username))
}

// GetByID retrieves a user by ID
func (r *DirectoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(querier(ctx, r.db).QueryRow(ctx, selectUserByID, id))
}

// CreateCustomer inserts the customer profile of an existing user
func (r *DirectoryRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	_, err := r.db.Exec(ctx, insertCustomer,
		customer.ID,
		customer.IdentityRef,
		customer.FirstName,
		customer.LastName,
		customer.PostalAddress,
		customer.BirthDate,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdentity
	}
	return err
}

// GetCustomer retrieves a customer with its user profile
func (r *DirectoryRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := querier(ctx, r.db).QueryRow(ctx, selectCustomerByID, id).Scan(
		&c.ID,
		&c.Username,
		&c.Email,
		&c.CreatedAt,
		&c.IdentityRef,
		&c.FirstName,
		&c.LastName,
		&c.PostalAddress,
		&c.BirthDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}
