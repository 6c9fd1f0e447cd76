package library

import (
	"strings"
	"time"
)

const (
	// MaxActiveLoans is how many books a reader may hold at once.
	MaxActiveLoans = 3
	// LoanPeriodDays is how long a loan may stay open before it is expired.
	LoanPeriodDays = 30
)

// Book is a catalog entry together with its copy accounting.
// AvailableCopies never exceeds TotalCopies, and TotalCopies never shrinks.
type Book struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Year            int    `json:"year"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// NewBook builds a catalog entry that has not been assigned an id yet.
// All copies start out available.
func NewBook(title, author string, year, copies int) (*Book, error) {
	b := &Book{
		Title:           title,
		Author:          author,
		Year:            year,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// RestoreBook rebuilds a book with a known id, e.g. when loading from disk.
func RestoreBook(id int, title, author string, year, total, available int) (*Book, error) {
	if id <= 0 {
		return nil, validationErrorf("book id must be a positive number")
	}
	b := &Book{
		ID:              id,
		Title:           title,
		Author:          author,
		Year:            year,
		TotalCopies:     total,
		AvailableCopies: available,
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return validationErrorf("book title cannot be empty")
	}
	if strings.TrimSpace(b.Author) == "" {
		return validationErrorf("author name cannot be empty")
	}
	currentYear := time.Now().Year()
	if b.Year <= 0 {
		return validationErrorf("publication year must be greater than 0")
	}
	if b.Year > currentYear {
		return validationErrorf("publication year cannot be later than the current year (%d)", currentYear)
	}
	if b.TotalCopies < 0 {
		return validationErrorf("number of copies cannot be negative")
	}
	if b.AvailableCopies < 0 {
		return validationErrorf("number of available copies cannot be negative")
	}
	if b.AvailableCopies > b.TotalCopies {
		return validationErrorf("available copies cannot exceed the total number of copies")
	}
	return nil
}

// IncreaseTotalCopies raises the number of owned copies to newTotal. The
// added copies become available immediately.
func (b *Book) IncreaseTotalCopies(newTotal int) error {
	if newTotal < 0 {
		return validationErrorf("number of copies cannot be negative")
	}
	if newTotal < b.TotalCopies {
		return validationErrorf("number of copies cannot be decreased")
	}
	b.AvailableCopies += newTotal - b.TotalCopies
	b.TotalCopies = newTotal
	return nil
}

// IssueCopy takes one available copy off the shelf.
func (b *Book) IssueCopy() error {
	if b.AvailableCopies <= 0 {
		return ErrNoCopiesAvailable
	}
	b.AvailableCopies--
	return nil
}

// ReturnCopy puts a copy back on the shelf. It reports false, and changes
// nothing, when every copy is already in.
func (b *Book) ReturnCopy() bool {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
		return true
	}
	return false
}

// SameEntry reports whether b and other describe the same catalog entry,
// regardless of their ids.
func (b *Book) SameEntry(other *Book) bool {
	return b.Year == other.Year &&
		strings.EqualFold(b.Title, other.Title) &&
		strings.EqualFold(b.Author, other.Author)
}

// User is a registered reader. Users are never changed after registration.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser builds a reader that has not been assigned an id yet.
func NewUser(name, email string) (*User, error) {
	u := &User{Name: name, Email: email}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// RestoreUser rebuilds a reader with a known id.
func RestoreUser(id int, name, email string) (*User, error) {
	if id <= 0 {
		return nil, validationErrorf("user id must be a positive number")
	}
	u := &User{ID: id, Name: name, Email: email}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return validationErrorf("user name cannot be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return validationErrorf("user email cannot be empty")
	}
	return nil
}

// SameReader reports whether u and other are the same person: name and
// email match case-insensitively.
func (u *User) SameReader(other *User) bool {
	return strings.EqualFold(u.Name, other.Name) &&
		strings.EqualFold(u.Email, other.Email)
}

// Loan records one copy of a book lent to a reader. A nil ReturnDate means
// the copy is still out.
type Loan struct {
	ID         int        `json:"id"`
	BookID     int        `json:"book_id"`
	UserID     int        `json:"user_id"`
	LoanDate   time.Time  `json:"loan_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// NewLoan opens a loan dated on the calendar day of loanDate.
func NewLoan(bookID, userID int, loanDate time.Time) *Loan {
	return &Loan{
		BookID:   bookID,
		UserID:   userID,
		LoanDate: Date(loanDate),
	}
}

// RestoreLoan rebuilds a loan with a known id. returnDate may be nil.
func RestoreLoan(id, bookID, userID int, loanDate time.Time, returnDate *time.Time) (*Loan, error) {
	if id <= 0 {
		return nil, validationErrorf("loan id must be a positive number")
	}
	l := &Loan{
		ID:       id,
		BookID:   bookID,
		UserID:   userID,
		LoanDate: Date(loanDate),
	}
	if returnDate != nil {
		l.MarkReturned(*returnDate)
	}
	return l, nil
}

// MarkReturned sets the return date. Calling it again overwrites the date.
func (l *Loan) MarkReturned(date time.Time) {
	d := Date(date)
	l.ReturnDate = &d
}

// IsActive reports whether the copy has not been returned yet.
func (l *Loan) IsActive() bool { return l.ReturnDate == nil }

// DueDate is the last day of the loan period.
func (l *Loan) DueDate() time.Time {
	return l.LoanDate.AddDate(0, 0, LoanPeriodDays)
}

// IsExpired reports whether the loan is still open past its due date.
// A returned loan is never expired, however late it came back.
func (l *Loan) IsExpired(today time.Time) bool {
	if !l.IsActive() {
		return false
	}
	return l.DueDate().Before(Date(today))
}

// Date truncates t to its calendar day. Loan dates carry no time of day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
