package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"stocks-simulator/models"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// Register creates an account funded with models.StartingCash.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (models.User, error) {
	l := s.logger.WithFields(logrus.Fields{
		"method":         "Register",
		"param_username": username,
	})
	l.Debugf("Attempting to register user")

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return models.User{}, userError(ErrValidation, "username cannot be blank")
	case password == "":
		return models.User{}, userError(ErrValidation, "password cannot be blank")
	case password != confirmation:
		return models.User{}, userError(ErrValidation, "passwords do not match")
	case len(password) > maxPasswordBytes:
		return models.User{}, userError(ErrValidation, "password must be at most %d bytes long", maxPasswordBytes)
	case !satisfiesPasswordPolicy(password):
		return models.User{}, userError(ErrValidation, "password must contain at least 1 letter, 1 digit and 1 symbol")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	taken := userError(ErrConflict, "username already taken, please choose another one")
	user := models.User{
		Username: username,
		Hash:     string(hash),
		Cash:     models.StartingCash,
	}

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		existing, err := tx.UsersByUsername(username)
		if err != nil {
			return fmt.Errorf("searching for username: %w", err)
		}
		if len(existing) != 0 {
			return taken
		}
		if err := tx.CreateUser(&user); err != nil {
			if errors.Is(err, ErrConflict) {
				return taken
			}
			return fmt.Errorf("creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return models.User{}, err
	}

	l.Infof("Registered user %d", user.ID)
	return user, nil
}

// Authenticate returns the account matching username and password. Unknown
// usernames and wrong passwords fail with the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	l := s.logger.WithFields(logrus.Fields{
		"method":         "Authenticate",
		"param_username": username,
	})

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return models.User{}, userError(ErrValidation, "must provide username")
	case password == "":
		return models.User{}, userError(ErrValidation, "must provide password")
	}

	var rows []models.User
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		rows, err = tx.UsersByUsername(username)
		if err != nil {
			return fmt.Errorf("searching for username: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return models.User{}, err
	}

	if len(rows) != 1 || bcrypt.CompareHashAndPassword([]byte(rows[0].Hash), []byte(password)) != nil {
		l.Infof("Invalid credentials")
		return models.User{}, userError(ErrUnauthorized, "invalid username and/or password")
	}

	l.Debugf("Authenticated user %d", rows[0].ID)
	return rows[0], nil
}

// satisfiesPasswordPolicy scans the password once and reports whether it
// contains a letter, a number (any Unicode numeric character, so "²" and
// "Ⅻ" count) and a character that is neither.
func satisfiesPasswordPolicy(password string) bool {
	var letter, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsNumber(r):
			digit = true
		default:
			symbol = true
		}
	}
	return letter && digit && symbol
}
