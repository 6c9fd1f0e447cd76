package library

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Persisted records are single lines of ';'-separated fields. Fields are
// not escaped, so a ';' inside a title, name or email cannot be stored.
const fieldSeparator = ";"

const (
	bookFields = 6
	userFields = 3
	loanFields = 5
)

// MarshalBook encodes b as id;title;author;year;totalCopies;availableCopies.
func MarshalBook(b *Book) string {
	return fmt.Sprintf("%d;%s;%s;%d;%d;%d",
		b.ID, b.Title, b.Author, b.Year, b.TotalCopies, b.AvailableCopies)
}

// ParseBook decodes a line produced by MarshalBook.
func ParseBook(line string) (*Book, error) {
	parts, err := splitRecord(line, bookFields, "book")
	if err != nil {
		return nil, err
	}
	nums, err := parseInts(line, parts[0], parts[3], parts[4], parts[5])
	if err != nil {
		return nil, err
	}
	return RestoreBook(nums[0], parts[1], parts[2], nums[1], nums[2], nums[3])
}

// MarshalUser encodes u as id;name;email.
func MarshalUser(u *User) string {
	return fmt.Sprintf("%d;%s;%s", u.ID, u.Name, u.Email)
}

// ParseUser decodes a line produced by MarshalUser.
func ParseUser(line string) (*User, error) {
	parts, err := splitRecord(line, userFields, "user")
	if err != nil {
		return nil, err
	}
	nums, err := parseInts(line, parts[0])
	if err != nil {
		return nil, err
	}
	return RestoreUser(nums[0], parts[1], parts[2])
}

// MarshalLoan encodes l as id;bookId;userId;loanDate;returnDate with an
// empty returnDate while the loan is active.
func MarshalLoan(l *Loan) string {
	returned := ""
	if l.ReturnDate != nil {
		returned = l.ReturnDate.Format(time.DateOnly)
	}
	return fmt.Sprintf("%d;%d;%d;%s;%s",
		l.ID, l.BookID, l.UserID, l.LoanDate.Format(time.DateOnly), returned)
}

// ParseLoan decodes a line produced by MarshalLoan.
func ParseLoan(line string) (*Loan, error) {
	parts, err := splitRecord(line, loanFields, "loan")
	if err != nil {
		return nil, err
	}
	nums, err := parseInts(line, parts[0], parts[1], parts[2])
	if err != nil {
		return nil, err
	}
	loanDate, err := time.Parse(time.DateOnly, parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad loan date in %q: %v", ErrMalformedRecord, line, err)
	}
	var returnDate *time.Time
	if parts[4] != "" {
		d, err := time.Parse(time.DateOnly, parts[4])
		if err != nil {
			return nil, fmt.Errorf("%w: bad return date in %q: %v", ErrMalformedRecord, line, err)
		}
		returnDate = &d
	}
	return RestoreLoan(nums[0], nums[1], nums[2], loanDate, returnDate)
}

func splitRecord(line string, want int, kind string) ([]string, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) != want {
		return nil, fmt.Errorf("%w: %s record needs %d fields, got %d: %q",
			ErrMalformedRecord, kind, want, len(parts), line)
	}
	return parts, nil
}

func parseInts(line string, fields ...string) ([]int, error) {
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number in %q", ErrMalformedRecord, f, line)
		}
		nums[i] = n
	}
	return nums, nil
}
