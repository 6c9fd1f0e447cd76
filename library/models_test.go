package library

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewBook_Validation(t *testing.T) {
	nextYear := time.Now().Year() + 1

	tests := []struct {
		name    string
		title   string
		author  string
		year    int
		copies  int
		wantErr bool
	}{
		{"valid", "Kolobok", "Folk", 1936, 2, false},
		{"zero copies", "Kolobok", "Folk", 1936, 0, false},
		{"blank title", "  ", "Folk", 1936, 1, true},
		{"blank author", "Kolobok", "", 1936, 1, true},
		{"year zero", "Kolobok", "Folk", 0, 1, true},
		{"negative year", "Kolobok", "Folk", -5, 1, true},
		{"future year", "Kolobok", "Folk", nextYear, 1, true},
		{"negative copies", "Kolobok", "Folk", 1936, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBook(tt.title, tt.author, tt.year, tt.copies)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				return
			}
			require.NoError(t, err)
			assert.Zero(t, b.ID, "id is assigned on insert")
			assert.Equal(t, tt.copies, b.TotalCopies)
			assert.Equal(t, tt.copies, b.AvailableCopies)
		})
	}
}

func TestRestoreBook_Validation(t *testing.T) {
	_, err := RestoreBook(0, "T", "A", 2000, 1, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = RestoreBook(1, "T", "A", 2000, 1, 2)
	assert.ErrorIs(t, err, ErrValidation, "available above total")

	_, err = RestoreBook(1, "T", "A", 2000, 1, -1)
	assert.ErrorIs(t, err, ErrValidation)

	b, err := RestoreBook(7, "T", "A", 2000, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, b.ID)
	assert.Equal(t, 1, b.AvailableCopies)
}

func TestBook_IncreaseTotalCopies(t *testing.T) {
	b, err := RestoreBook(1, "T", "A", 2000, 3, 1)
	require.NoError(t, err)

	require.NoError(t, b.IncreaseTotalCopies(5))
	assert.Equal(t, 5, b.TotalCopies)
	assert.Equal(t, 3, b.AvailableCopies, "added copies are available at once")

	require.NoError(t, b.IncreaseTotalCopies(5), "same total is a no-op")
	assert.Equal(t, 3, b.AvailableCopies)

	err = b.IncreaseTotalCopies(4)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, b.TotalCopies, "rejected change leaves the book alone")

	assert.ErrorIs(t, b.IncreaseTotalCopies(-1), ErrValidation)
}

func TestBook_IssueAndReturnCopy(t *testing.T) {
	b, err := NewBook("T", "A", 2000, 1)
	require.NoError(t, err)

	require.NoError(t, b.IssueCopy())
	assert.Equal(t, 0, b.AvailableCopies)
	assert.ErrorIs(t, b.IssueCopy(), ErrNoCopiesAvailable)
	assert.Equal(t, 0, b.AvailableCopies)

	assert.True(t, b.ReturnCopy())
	assert.Equal(t, 1, b.AvailableCopies)
	assert.False(t, b.ReturnCopy(), "cannot exceed total")
	assert.Equal(t, 1, b.AvailableCopies)
}

func TestBook_CopyAccountingInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 20).Draw(t, "total")
		b, err := NewBook("T", "A", 2000, total)
		if err != nil {
			t.Fatalf("new book: %v", err)
		}

		ops := rapid.SliceOf(rapid.IntRange(0, 2)).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				_ = b.IssueCopy()
			case 1:
				b.ReturnCopy()
			case 2:
				_ = b.IncreaseTotalCopies(b.TotalCopies + 1)
			}
			if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
				t.Fatalf("available %d outside [0, %d]", b.AvailableCopies, b.TotalCopies)
			}
			if b.TotalCopies < total {
				t.Fatalf("total shrank from %d to %d", total, b.TotalCopies)
			}
		}
	})
}

func TestBook_SameEntry(t *testing.T) {
	a, _ := NewBook("Kolobok", "Folk", 1936, 1)
	b, _ := NewBook("KOLOBOK", "folk", 1936, 4)
	c, _ := NewBook("Kolobok", "Folk", 1937, 1)

	assert.True(t, a.SameEntry(b))
	assert.False(t, a.SameEntry(c))
}

func TestNewUser_Validation(t *testing.T) {
	_, err := NewUser("", "a@example.com")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewUser("Ann", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	u, err := NewUser("Ann", "ann@example.com")
	require.NoError(t, err)
	assert.Zero(t, u.ID)

	_, err = RestoreUser(-1, "Ann", "ann@example.com")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUser_SameReader(t *testing.T) {
	a, _ := NewUser("Ann", "ann@example.com")
	b, _ := NewUser("ANN", "Ann@Example.com")
	c, _ := NewUser("Ann", "ann@example.org")

	assert.True(t, a.SameReader(b))
	assert.False(t, a.SameReader(c))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoan_DueDateAndExpiry(t *testing.T) {
	loan := NewLoan(1, 1, time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, day(2024, time.January, 1), loan.LoanDate, "time of day is dropped")
	assert.Equal(t, day(2024, time.January, 31), loan.DueDate())

	assert.False(t, loan.IsExpired(day(2024, time.January, 31)), "due day itself is not expired")
	assert.True(t, loan.IsExpired(day(2024, time.February, 1)))

	loan.MarkReturned(day(2024, time.March, 1))
	assert.False(t, loan.IsActive())
	assert.False(t, loan.IsExpired(day(2024, time.April, 1)), "returned loans never expire")
}

func TestRestoreLoan(t *testing.T) {
	ret := day(2024, time.February, 2)
	loan, err := RestoreLoan(3, 1, 2, day(2024, time.January, 1), &ret)
	require.NoError(t, err)
	assert.Equal(t, 3, loan.ID)
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, ret, *loan.ReturnDate)

	_, err = RestoreLoan(0, 1, 2, day(2024, time.January, 1), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoan_Status(t *testing.T) {
	loan := NewLoan(1, 1, day(2024, time.January, 1))
	assert.Equal(t, "on loan", loan.Status(day(2024, time.January, 10)))
	assert.Equal(t, "expired", loan.Status(day(2024, time.March, 1)))

	loan.MarkReturned(day(2024, time.March, 2))
	assert.Equal(t, "returned 2024-03-02", loan.Status(day(2024, time.March, 3)))
}

func TestSequence(t *testing.T) {
	var s Sequence
	assert.Equal(t, 1, s.Peek())
	assert.Equal(t, 1, s.Next())

	s.Observe(10)
	s.Observe(4)
	assert.Equal(t, 11, s.Peek())
	assert.Equal(t, 11, s.Next())
	assert.Equal(t, 12, s.Next())
}
