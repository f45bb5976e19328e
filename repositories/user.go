//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"chat-duo/domain"
	"chat-duo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IUserRepository interface {
	CreateUser(handle, passwordHash string) (domain.User, error)
	GetByID(userID string) (domain.User, error)
	GetByHandle(handle string) (domain.User, error)
	Exists(userID string) (bool, error)
	AddContactPair(userA, userB string) error
	Contacts(userID string) ([]domain.Summary, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// userRecord is the stored shape of an identity-store entry.
type userRecord struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	PasswordHash string    `json:"password_hash"`
	Contacts     []string  `json:"contacts,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Keys:
//
//	user:{id}      -> user record
//	hndl:{handle}  -> user id (unique handle index)
func userStorageKey(id string) []byte       { return []byte("user:" + id) }
func handleStorageKey(handle string) []byte { return []byte("hndl:" + handle) }

// CreateUser persists a new identity with a unique handle. The caller hashes
// the password; plain text never reaches this layer.
func (r UserRepository) CreateUser(handle, passwordHash string) (domain.User, error) {
	if handle == "" {
		return domain.User{}, fmt.Errorf("%w: empty handle", errors.ErrValidation)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(handleStorageKey(handle)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(handleStorageKey(handle), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userStorageKey(user.ID), data)
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return user, nil
}

func (r UserRepository) GetByID(userID string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = readUser(txn, userID)
		return err
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return user, nil
}

func (r UserRepository) GetByHandle(handle string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(handleStorageKey(handle))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: handle %q", errors.ErrNotFound, handle)
			}
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		user, err = readUser(txn, id)
		return err
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return user, nil
}

func (r UserRepository) Exists(userID string) (bool, error) {
	exists := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userStorageKey(userID))
		if err == nil {
			exists = true
			return nil
		}
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return exists, nil
}

// AddContactPair records that the two users have communicated, adding each
// to the other's contact set. The union is idempotent, so repeating the call
// for every message is harmless. Both directions commit in one transaction.
func (r UserRepository) AddContactPair(userA, userB string) error {
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			if err := addContact(txn, userA, userB); err != nil {
				return err
			}
			return addContact(txn, userB, userA)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		return nil
	}
}

// Contacts resolves the user's contact set to summaries. Secrets stay here.
func (r UserRepository) Contacts(userID string) ([]domain.Summary, error) {
	var summaries []domain.Summary
	err := r.db.View(func(txn *badger.Txn) error {
		owner, err := readUser(txn, userID)
		if err != nil {
			return err
		}
		users := make([]domain.User, 0, len(owner.Contacts))
		for _, contactID := range owner.Contacts {
			contact, err := readUser(txn, contactID)
			if err != nil {
				if goerrors.Is(err, errors.ErrNotFound) {
					// Contact deleted since; skip rather than fail the listing.
					continue
				}
				return err
			}
			users = append(users, contact)
		}
		summaries = lo.Map(users, func(u domain.User, _ int) domain.Summary {
			return u.Summary()
		})
		return nil
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return summaries, nil
}

func addContact(txn *badger.Txn, ownerID, contactID string) error {
	owner, err := readUser(txn, ownerID)
	if err != nil {
		return err
	}
	if lo.Contains(owner.Contacts, contactID) {
		return nil
	}
	owner.Contacts = append(owner.Contacts, contactID)
	data, err := json.Marshal(fromUser(owner))
	if err != nil {
		return err
	}
	return txn.Set(userStorageKey(ownerID), data)
}

func readUser(txn *badger.Txn, id string) (domain.User, error) {
	item, err := txn.Get(userStorageKey(id))
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, fmt.Errorf("%w: user %s", errors.ErrNotFound, id)
		}
		return domain.User{}, err
	}
	var rec userRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return domain.User{}, err
	}
	return toUser(rec), nil
}

func fromUser(u domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Handle:       u.Handle,
		PasswordHash: u.PasswordHash,
		Contacts:     u.Contacts,
		CreatedAt:    u.CreatedAt,
	}
}

func toUser(rec userRecord) domain.User {
	return domain.User{
		ID:           rec.ID,
		Handle:       rec.Handle,
		PasswordHash: rec.PasswordHash,
		Contacts:     rec.Contacts,
		CreatedAt:    rec.CreatedAt.UTC(),
	}
}
