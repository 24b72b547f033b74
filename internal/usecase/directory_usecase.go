package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// DirectoryUseCase registers and reads the users and customers the ledger
// attributes entries to.
type DirectoryUseCase struct {
	writer     DirectoryWriter
	identities IdentityResolver
	customers  CustomerDirectory
	idGen      IDGenerator
}

// NewDirectoryUseCase creates a new directory use case
func NewDirectoryUseCase(writer DirectoryWriter, identities IdentityResolver, customers CustomerDirectory, idGen IDGenerator) *DirectoryUseCase {
	return &DirectoryUseCase{
		writer:     writer,
		identities: identities,
		customers:  customers,
		idGen:      idGen,
	}
}

// RegisterUserInput represents input for registering a user
type RegisterUserInput struct {
	ID       string
	Username string
	Email    string
}

// RegisterUser stores a new acting user. An empty ID is generated.
func (uc *DirectoryUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, domain.ErrUsernameRequired
	}

	// Check if user already exists
	_, err := uc.identities.ResolveUsername(ctx, username)
	if err == nil {
		return nil, domain.ErrDuplicateIdentity
	}
	if !errors.Is(err, domain.ErrUnknownUser) {
		return nil, domain.NewInfrastructureError("resolve username", err)
	}

	user := &domain.User{
		ID:        input.ID,
		Username:  username,
		Email:     input.Email,
		CreatedAt: time.Now().UTC(),
	}
	if user.ID == "" {
		user.ID = uc.idGen.Generate()
	}

	if err := uc.writer.CreateUser(ctx, user); err != nil {
		return nil, domain.NewInfrastructureError("create user", err)
	}

	return user, nil
}

// RegisterCustomerInput represents input for onboarding a customer
type RegisterCustomerInput struct {
	User          RegisterUserInput
	IdentityRef   string
	FirstName     string
	LastName      string
	PostalAddress string
	BirthDate     *time.Time
}

// RegisterCustomer registers the customer's user and then its profile; the
// customer shares the user's ID.
func (uc *DirectoryUseCase) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.Customer, error) {
	user, err := uc.RegisterUser(ctx, input.User)
	if err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		User:          *user,
		IdentityRef:   input.IdentityRef,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		PostalAddress: input.PostalAddress,
		BirthDate:     input.BirthDate,
	}

	if err := uc.writer.CreateCustomer(ctx, customer); err != nil {
		return nil, domain.NewInfrastructureError("create customer", err)
	}

	return customer, nil
}

// GetUser retrieves a user by ID
func (uc *DirectoryUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := uc.identities.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewInfrastructureError("get user", err)
	}
	return user, nil
}

// GetCustomer retrieves a customer by ID
func (uc *DirectoryUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := uc.customers.GetCustomer(ctx, id)
	if err != nil {
		return nil, domain.NewInfrastructureError("get customer", err)
	}
	return customer, nil
}
