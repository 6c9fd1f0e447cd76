package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_EmptyOnFirstOpen(t *testing.T) {
	db := tempDB(t)

	books, err := db.LoadBooks()
	require.NoError(t, err)
	assert.Empty(t, books)

	loans, err := db.LoadLoans()
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestDatabase_SaveAndLoad(t *testing.T) {
	db := tempDB(t)

	b1, _ := RestoreBook(1, "Kolobok", "Folk", 1936, 2, 1)
	b2, _ := RestoreBook(5, "Repka", "Folk", 1940, 1, 1)
	u, _ := RestoreUser(1, "Ann", "ann@example.com")
	ret := day(2024, time.January, 5)
	l1, _ := RestoreLoan(1, 1, 1, day(2024, time.January, 1), &ret)
	l2, _ := RestoreLoan(2, 1, 1, day(2024, time.January, 6), nil)

	require.NoError(t, db.SaveBooks([]*Book{b1, b2}))
	require.NoError(t, db.SaveUsers([]*User{u}))
	require.NoError(t, db.SaveLoans([]*Loan{l1, l2}))

	books, err := db.LoadBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, *b1, *books[0])
	assert.Equal(t, *b2, *books[1])

	users, err := db.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, []*User{u}, users)

	loans, err := db.LoadLoans()
	require.NoError(t, err)
	require.Len(t, loans, 2)
	require.NotNil(t, loans[0].ReturnDate)
	assert.True(t, loans[0].ReturnDate.Equal(ret))
	assert.Nil(t, loans[1].ReturnDate)
	assert.True(t, loans[1].LoanDate.Equal(day(2024, time.January, 6)))
}

func TestDatabase_SaveReplacesTable(t *testing.T) {
	db := tempDB(t)

	a, _ := RestoreUser(1, "Ann", "ann@example.com")
	b, _ := RestoreUser(2, "Bob", "bob@example.com")
	require.NoError(t, db.SaveUsers([]*User{a, b}))
	require.NoError(t, db.SaveUsers([]*User{b}))

	users, err := db.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, []*User{b}, users)
}

func TestDatabase_DuplicateIDRollsBack(t *testing.T) {
	db := tempDB(t)

	a, _ := RestoreUser(1, "Ann", "ann@example.com")
	require.NoError(t, db.SaveUsers([]*User{a}))

	dup, _ := RestoreUser(2, "Bob", "bob@example.com")
	err := db.SaveUsers([]*User{dup, dup})
	require.Error(t, err)

	users, err := db.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, []*User{a}, users, "failed save keeps the previous snapshot")
}

func TestDatabase_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	b, _ := RestoreBook(1, "Kolobok", "Folk", 1936, 2, 2)
	require.NoError(t, db.SaveBooks([]*Book{b}))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	books, err := db.LoadBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Kolobok", books[0].Title)
}
