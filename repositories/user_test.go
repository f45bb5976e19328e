package repositories

import (
	"testing"

	"chat-duo/domain"
	"chat-duo/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func Test_CreateUser_Unique_Handle(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice", "hash-a")
	req.NoError(err)
	req.NotEmpty(alice.ID)

	_, err = repository.CreateUser("alice", "hash-b")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	fetched, err := repository.GetByHandle("alice")
	req.NoError(err)
	req.Equal(alice.ID, fetched.ID)

	exists, err := repository.Exists(alice.ID)
	req.NoError(err)
	req.True(exists)
	exists, err = repository.Exists("nobody")
	req.NoError(err)
	req.False(exists)
}

func Test_AddContactPair_Symmetric_And_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice", "hash-a")
	req.NoError(err)
	bob, err := repository.CreateUser("bob", "hash-b")
	req.NoError(err)

	// Repeating the call must not duplicate either side.
	for i := 0; i < 3; i++ {
		req.NoError(repository.AddContactPair(alice.ID, bob.ID))
	}

	aliceContacts, err := repository.Contacts(alice.ID)
	req.NoError(err)
	req.Len(aliceContacts, 1)
	req.Equal(bob.ID, aliceContacts[0].ID)
	req.Equal("bob", aliceContacts[0].Handle)

	bobContacts, err := repository.Contacts(bob.ID)
	req.NoError(err)
	req.Len(bobContacts, 1)
	req.Equal(alice.ID, bobContacts[0].ID)
}

func Test_Contacts_Accumulate_Per_Peer(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice", "hash-a")
	req.NoError(err)
	bob, err := repository.CreateUser("bob", "hash-b")
	req.NoError(err)
	clara, err := repository.CreateUser("clara", "hash-c")
	req.NoError(err)

	req.NoError(repository.AddContactPair(alice.ID, bob.ID))
	req.NoError(repository.AddContactPair(alice.ID, clara.ID))

	contacts, err := repository.Contacts(alice.ID)
	req.NoError(err)
	req.Len(contacts, 2)
	handles := lo.Map(contacts, func(s domain.Summary, _ int) string { return s.Handle })
	req.ElementsMatch([]string{"bob", "clara"}, handles)
}

func Test_AddContactPair_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice", "hash-a")
	req.NoError(err)
	err = repository.AddContactPair(alice.ID, "nobody")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Summary_Excludes_Secrets(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	alice, err := repository.CreateUser("alice", "hash-a")
	req.NoError(err)
	summary := alice.Summary()
	req.Equal(alice.ID, summary.ID)
	req.Equal(alice.Handle, summary.Handle)
}
