package library

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Library owns the catalog, the readers and the lending history. It is the
// only writer of its Store and checks every precondition of an operation
// before changing anything. A Library is not safe for concurrent use.
type Library struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	books map[int]*Book
	users map[int]*User
	loans map[int]*Loan

	bookIDs Sequence
	userIDs Sequence
	loanIDs Sequence
}

// Option configures a Library.
type Option func(*Library)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(l *Library) { l.log = log }
}

// New loads books, users and loans from store. Any load error is returned
// and the Library is not usable.
func New(store Store, opts ...Option) (*Library, error) {
	l := &Library{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		books: make(map[int]*Book),
		users: make(map[int]*User),
		loans: make(map[int]*Loan),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("library")

	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) load() error {
	books, err := l.store.LoadBooks()
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	for _, b := range books {
		if _, dup := l.books[b.ID]; dup {
			return fmt.Errorf("load books: %w: duplicate book id %d", ErrMalformedRecord, b.ID)
		}
		l.books[b.ID] = b
		l.bookIDs.Observe(b.ID)
	}

	users, err := l.store.LoadUsers()
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if _, dup := l.users[u.ID]; dup {
			return fmt.Errorf("load users: %w: duplicate user id %d", ErrMalformedRecord, u.ID)
		}
		l.users[u.ID] = u
		l.userIDs.Observe(u.ID)
	}

	loans, err := l.store.LoadLoans()
	if err != nil {
		return fmt.Errorf("load loans: %w", err)
	}
	for _, ln := range loans {
		if _, dup := l.loans[ln.ID]; dup {
			return fmt.Errorf("load loans: %w: duplicate loan id %d", ErrMalformedRecord, ln.ID)
		}
		if _, ok := l.books[ln.BookID]; !ok {
			l.log.Warn("loan references unknown book", zap.Int("loan", ln.ID), zap.Int("book", ln.BookID))
		}
		if _, ok := l.users[ln.UserID]; !ok {
			l.log.Warn("loan references unknown user", zap.Int("loan", ln.ID), zap.Int("user", ln.UserID))
		}
		l.loans[ln.ID] = ln
		l.loanIDs.Observe(ln.ID)
	}

	l.log.Debug("state loaded",
		zap.Int("books", len(l.books)),
		zap.Int("users", len(l.users)),
		zap.Int("loans", len(l.loans)))
	return nil
}

// Close releases the underlying store.
func (l *Library) Close() error { return l.store.Close() }

// ------------------ Catalog ------------------

// AddBook registers book in the catalog and returns the id of the affected
// entry. If an entry with the same title, author and year exists, the
// incoming copies are added to it instead of creating a second entry; in
// that case the incoming copy count must be positive.
func (l *Library) AddBook(book *Book) (int, error) {
	if existing := l.findEntry(book); existing != nil {
		if book.TotalCopies <= 0 {
			return 0, validationErrorf("number of copies to add must be positive")
		}
		if err := existing.IncreaseTotalCopies(existing.TotalCopies + book.TotalCopies); err != nil {
			return 0, err
		}
		l.log.Info("copies added to catalog entry",
			zap.Int("book", existing.ID),
			zap.Int("added", book.TotalCopies),
			zap.Int("total", existing.TotalCopies))
		return existing.ID, l.saveBooks()
	}

	b := *book
	if b.ID != 0 {
		if _, taken := l.books[b.ID]; taken {
			return 0, validationErrorf("book id %d is already used by another catalog entry", b.ID)
		}
		if _, err := RestoreBook(b.ID, b.Title, b.Author, b.Year, b.TotalCopies, b.AvailableCopies); err != nil {
			return 0, err
		}
		l.bookIDs.Observe(b.ID)
	} else {
		if err := b.validate(); err != nil {
			return 0, err
		}
		b.ID = l.bookIDs.Next()
	}
	l.books[b.ID] = &b
	l.log.Info("book added", zap.Int("book", b.ID), zap.String("title", b.Title))
	return b.ID, l.saveBooks()
}

func (l *Library) findEntry(book *Book) *Book {
	for _, b := range l.books {
		if b.SameEntry(book) {
			return b
		}
	}
	return nil
}

// Book returns a copy of the book with the given id.
func (l *Library) Book(id int) (*Book, bool) {
	b, ok := l.books[id]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

// Books lists the catalog ordered by id.
func (l *Library) Books() []*Book {
	out := make([]*Book, 0, len(l.books))
	for _, b := range l.books {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchBooks returns books whose title, author or year contains query,
// ignoring case.
func (l *Library) SearchBooks(query string) []*Book {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*Book
	for _, b := range l.Books() {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strconv.Itoa(b.Year), q) {
			out = append(out, b)
		}
	}
	return out
}

// ------------------ Readers ------------------

// AddUser registers a reader and returns the new id.
func (l *Library) AddUser(user *User) (int, error) {
	for _, u := range l.users {
		if u.SameReader(user) {
			return 0, fmt.Errorf("%w: %q (email %s) is already registered", ErrUserAlreadyExists, user.Name, user.Email)
		}
	}

	u := *user
	if u.ID != 0 {
		if _, taken := l.users[u.ID]; taken {
			return 0, validationErrorf("user id %d is already used by another reader", u.ID)
		}
		if _, err := RestoreUser(u.ID, u.Name, u.Email); err != nil {
			return 0, err
		}
		l.userIDs.Observe(u.ID)
	} else {
		if err := u.validate(); err != nil {
			return 0, err
		}
		u.ID = l.userIDs.Next()
	}
	l.users[u.ID] = &u
	l.log.Info("user added", zap.Int("user", u.ID), zap.String("name", u.Name))
	return u.ID, l.saveUsers()
}

// User returns a copy of the reader with the given id.
func (l *Library) User(id int) (*User, bool) {
	u, ok := l.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// Users lists every reader ordered by id.
func (l *Library) Users() []*User {
	out := make([]*User, 0, len(l.users))
	for _, u := range l.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchUsers returns readers whose id equals query or whose name or email
// contains it, ignoring case.
func (l *Library) SearchUsers(query string) []*User {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*User
	for _, u := range l.Users() {
		if strconv.Itoa(u.ID) == q ||
			strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}

// ------------------ Circulation ------------------

// BorrowBook lends one copy of bookID to userID. The checks run in a fixed
// order and all of them pass before anything changes: the reader exists,
// the book exists, the reader is below MaxActiveLoans, the reader does not
// already hold this book, and a copy is available.
func (l *Library) BorrowBook(userID, bookID int) (*Loan, error) {
	if _, ok := l.users[userID]; !ok {
		return nil, fmt.Errorf("%w: id=%d", ErrUserNotFound, userID)
	}
	book, ok := l.books[bookID]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", ErrBookNotFound, bookID)
	}

	active := 0
	for _, ln := range l.loans {
		if ln.UserID == userID && ln.IsActive() {
			active++
		}
	}
	if active >= MaxActiveLoans {
		return nil, ErrQuotaExceeded
	}
	if l.activeLoan(userID, bookID) != nil {
		return nil, fmt.Errorf("%w (book id=%d)", ErrDuplicateLoan, bookID)
	}
	if err := book.IssueCopy(); err != nil {
		return nil, err
	}

	loan := NewLoan(bookID, userID, l.now())
	loan.ID = l.loanIDs.Next()
	l.loans[loan.ID] = loan
	l.log.Info("book lent",
		zap.Int("loan", loan.ID),
		zap.Int("user", userID),
		zap.Int("book", bookID),
		zap.Int("available", book.AvailableCopies))

	if err := l.saveLoansThenBooks(); err != nil {
		return nil, err
	}
	cp := *loan
	return &cp, nil
}

// ReturnBook closes the reader's active loan of bookID as of today and puts
// the copy back on the shelf.
func (l *Library) ReturnBook(userID, bookID int) (*Loan, error) {
	loan := l.activeLoan(userID, bookID)
	if loan == nil {
		return nil, fmt.Errorf("%w (user id=%d, book id=%d)", ErrLoanNotFound, userID, bookID)
	}

	loan.MarkReturned(l.now())
	if book, ok := l.books[bookID]; ok {
		if !book.ReturnCopy() {
			l.log.Warn("returned copy exceeds total copies", zap.Int("book", bookID))
		}
	}
	l.log.Info("book returned",
		zap.Int("loan", loan.ID),
		zap.Int("user", userID),
		zap.Int("book", bookID))

	if err := l.saveLoansThenBooks(); err != nil {
		return nil, err
	}
	cp := *loan
	return &cp, nil
}

func (l *Library) activeLoan(userID, bookID int) *Loan {
	for _, ln := range l.loans {
		if ln.UserID == userID && ln.BookID == bookID && ln.IsActive() {
			return ln
		}
	}
	return nil
}

// ------------------ Lending history ------------------

// Loan returns a copy of the loan with the given id.
func (l *Library) Loan(id int) (*Loan, bool) {
	ln, ok := l.loans[id]
	if !ok {
		return nil, false
	}
	cp := *ln
	return &cp, true
}

// Loans lists every loan ever made, ordered by id.
func (l *Library) Loans() []*Loan {
	return l.filterLoans(func(*Loan) bool { return true })
}

// ActiveLoans lists the loans whose copy is still out.
func (l *Library) ActiveLoans() []*Loan {
	return l.filterLoans((*Loan).IsActive)
}

// ExpiredLoans lists the active loans that are past their due date today.
func (l *Library) ExpiredLoans() []*Loan {
	today := l.Today()
	return l.filterLoans(func(ln *Loan) bool { return ln.IsExpired(today) })
}

// UserLoanHistory lists every loan of userID: active, returned or expired.
func (l *Library) UserLoanHistory(userID int) []*Loan {
	return l.filterLoans(func(ln *Loan) bool { return ln.UserID == userID })
}

// BookLoanHistory lists every loan of bookID.
func (l *Library) BookLoanHistory(bookID int) []*Loan {
	return l.filterLoans(func(ln *Loan) bool { return ln.BookID == bookID })
}

// UserActiveLoans lists the loans userID currently holds, most recent first.
func (l *Library) UserActiveLoans(userID int) []*Loan {
	out := l.filterLoans(func(ln *Loan) bool { return ln.UserID == userID && ln.IsActive() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoanDate.After(out[j].LoanDate) })
	return out
}

// HeldBook is a book together with how many of its copies a reader holds.
type HeldBook struct {
	Book  *Book `json:"book"`
	Count int   `json:"count"`
}

// UserBooks summarises the copies userID currently holds per book, derived
// from the active loans. Books missing from the catalog are skipped.
func (l *Library) UserBooks(userID int) []HeldBook {
	counts := make(map[int]int)
	for _, ln := range l.loans {
		if ln.UserID == userID && ln.IsActive() {
			counts[ln.BookID]++
		}
	}
	out := make([]HeldBook, 0, len(counts))
	for bookID, n := range counts {
		if b, ok := l.Book(bookID); ok {
			out = append(out, HeldBook{Book: b, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Book.ID < out[j].Book.ID })
	return out
}

// Today is the current calendar day according to the library clock.
func (l *Library) Today() time.Time { return Date(l.now()) }

func (l *Library) filterLoans(keep func(*Loan) bool) []*Loan {
	var out []*Loan
	for _, ln := range l.loans {
		if keep(ln) {
			cp := *ln
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ------------------ Persistence ------------------

// Saves rewrite a whole collection from the in-memory state. A failed save
// leaves memory ahead of disk; the next successful save of that collection
// catches the file up.

func (l *Library) saveBooks() error {
	if err := l.store.SaveBooks(l.Books()); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	return nil
}

func (l *Library) saveUsers() error {
	if err := l.store.SaveUsers(l.Users()); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (l *Library) saveLoansThenBooks() error {
	if err := l.store.SaveLoans(l.Loans()); err != nil {
		return fmt.Errorf("save loans: %w", err)
	}
	return l.saveBooks()
}

// SaveAll writes every collection to the library's own store.
func (l *Library) SaveAll() error { return l.ExportTo(l.store) }

// ExportTo writes a full snapshot of every collection to dst, which may be
// a different backend. Loans go before books, as in every other save.
func (l *Library) ExportTo(dst Store) error {
	if err := dst.SaveUsers(l.Users()); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	if err := dst.SaveLoans(l.Loans()); err != nil {
		return fmt.Errorf("save loans: %w", err)
	}
	if err := dst.SaveBooks(l.Books()); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	l.log.Info("snapshot exported",
		zap.Int("books", len(l.books)),
		zap.Int("users", len(l.users)),
		zap.Int("loans", len(l.loans)))
	return nil
}
