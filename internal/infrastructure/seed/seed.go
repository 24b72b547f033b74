// Package seed bootstraps users, customers and accounts from a YAML file.
//
//	users:
//	  - username: teller
//	customers:
//	  - username: alice
//	    first_name: Alice
//	    birth_date: 1990-04-12
//	    accounts:
//	      - rib: "000000000000000000000001"
//	        balance: "1500.00"
//
// Seeding is repeatable: identities and RIBs that already exist are kept.
// Omitted IDs are derived from the username, so a second run resolves to
// the same customer.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const birthDateLayout = "2006-01-02"

// File is the YAML document layout.
type File struct {
	Users     []User     `yaml:"users"`
	Customers []Customer `yaml:"customers"`
}

// User is an acting user without accounts.
type User struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
}

// Customer is a user who owns accounts.
type Customer struct {
	User          `yaml:",inline"`
	IdentityRef   string    `yaml:"identity_ref"`
	FirstName     string    `yaml:"first_name"`
	LastName      string    `yaml:"last_name"`
	PostalAddress string    `yaml:"postal_address"`
	BirthDate     string    `yaml:"birth_date"`
	Accounts      []Account `yaml:"accounts"`
}

// Account is an account opened for the enclosing customer.
type Account struct {
	RIB     string `yaml:"rib"`
	Balance string `yaml:"balance"`
}

// Registrar registers identities.
type Registrar interface {
	RegisterUser(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error)
	RegisterCustomer(ctx context.Context, input usecase.RegisterCustomerInput) (*domain.Customer, error)
}

// AccountOpener opens accounts.
type AccountOpener interface {
	Open(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
}

// Result counts what a run created.
type Result struct {
	Users     int
	Customers int
	Accounts  int
	Skipped   int
}

// Seeder applies seed files.
type Seeder struct {
	registrar Registrar
	accounts  AccountOpener
	logger    zerolog.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(registrar Registrar, accounts AccountOpener, logger zerolog.Logger) *Seeder {
	return &Seeder{
		registrar: registrar,
		accounts:  accounts,
		logger:    logger.With().Str("component", "seed").Logger(),
	}
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &f, nil
}

// LoadFile parses and applies the seed file at path.
func (s *Seeder) LoadFile(ctx context.Context, path string) (Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return Result{}, err
	}

	res, err := s.Apply(ctx, f)
	if err != nil {
		return res, err
	}

	s.logger.Info().
		Str("file", path).
		Int("users", res.Users).
		Int("customers", res.Customers).
		Int("accounts", res.Accounts).
		Int("skipped", res.Skipped).
		Msg("seed applied")

	return res, nil
}

// Apply registers every user, then every customer and its accounts.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for _, u := range f.Users {
		_, err := s.registrar.RegisterUser(ctx, userInput(u))
		switch {
		case err == nil:
			res.Users++
		case errors.Is(err, domain.ErrDuplicateIdentity):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
	}

	for _, c := range f.Customers {
		input, err := customerInput(c)
		if err != nil {
			return res, err
		}

		_, err = s.registrar.RegisterCustomer(ctx, input)
		switch {
		case err == nil:
			res.Customers++
		case errors.Is(err, domain.ErrDuplicateIdentity):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed customer %q: %w", c.Username, err)
		}

		for _, a := range c.Accounts {
			balance := decimal.Zero
			if strings.TrimSpace(a.Balance) != "" {
				balance, err = decimal.NewFromString(strings.TrimSpace(a.Balance))
				if err != nil {
					return res, fmt.Errorf("seed account %q: invalid balance %q", a.RIB, a.Balance)
				}
			}

			_, err = s.accounts.Open(ctx, usecase.OpenAccountInput{
				OwnerID:        input.User.ID,
				RIB:            a.RIB,
				InitialBalance: balance,
			})
			switch {
			case err == nil:
				res.Accounts++
			case errors.Is(err, domain.ErrDuplicateRIB):
				res.Skipped++
			default:
				return res, fmt.Errorf("seed account %q: %w", a.RIB, err)
			}
		}
	}

	return res, nil
}

func userInput(u User) usecase.RegisterUserInput {
	id := u.ID
	if id == "" && strings.TrimSpace(u.Username) != "" {
		id = StableID(u.Username)
	}
	return usecase.RegisterUserInput{ID: id, Username: u.Username, Email: u.Email}
}

func customerInput(c Customer) (usecase.RegisterCustomerInput, error) {
	input := usecase.RegisterCustomerInput{
		User:          userInput(c.User),
		IdentityRef:   c.IdentityRef,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		PostalAddress: c.PostalAddress,
	}

	if c.BirthDate != "" {
		bd, err := time.Parse(birthDateLayout, c.BirthDate)
		if err != nil {
			return input, fmt.Errorf("seed customer %q: birth_date must be YYYY-MM-DD: %w", c.Username, err)
		}
		input.BirthDate = &bd
	}

	return input, nil
}

// StableID derives the user ID used when a seed entry omits one.
func StableID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("bankledger:user:"+strings.TrimSpace(username))).String()
}
