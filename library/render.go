package library

import (
	"fmt"
	"time"
)

// Directory resolves ids to records for display. Library implements it.
type Directory interface {
	Book(id int) (*Book, bool)
	User(id int) (*User, bool)
}

func (b *Book) String() string {
	return fmt.Sprintf("ID: %d, Title: %s, Author: %s, Year: %d, Available: %d/%d",
		b.ID, b.Title, b.Author, b.Year, b.AvailableCopies, b.TotalCopies)
}

func (u *User) String() string {
	return fmt.Sprintf("ID: %d, Name: %s, Email: %s", u.ID, u.Name, u.Email)
}

// Status is the one-word state of a loan on the given day.
func (l *Loan) Status(today time.Time) string {
	switch {
	case !l.IsActive():
		return "returned " + l.ReturnDate.Format(time.DateOnly)
	case l.IsExpired(today):
		return "expired"
	default:
		return "on loan"
	}
}

func (l *Loan) String() string {
	return fmt.Sprintf("ID: %d, Book: %d, User: %d, Issued: %s",
		l.ID, l.BookID, l.UserID, l.LoanDate.Format(time.DateOnly))
}

// Describe renders the loan with its book and reader resolved through dir.
// Ids that dir cannot resolve are shown bare.
func (l *Loan) Describe(dir Directory, today time.Time) string {
	userInfo := fmt.Sprintf("ID %d", l.UserID)
	bookInfo := fmt.Sprintf("ID %d", l.BookID)
	if dir != nil {
		if u, ok := dir.User(l.UserID); ok {
			userInfo = u.String()
		}
		if b, ok := dir.Book(l.BookID); ok {
			bookInfo = b.String()
		}
	}
	return fmt.Sprintf("Reader: %s\nBook: %s\nID: %d, Issued: %s, Due: %s, Status: %s",
		userInfo,
		bookInfo,
		l.ID,
		l.LoanDate.Format(time.DateOnly),
		l.DueDate().Format(time.DateOnly),
		l.Status(today))
}
