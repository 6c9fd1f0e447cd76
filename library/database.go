package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a Store backed by a SQLite file. Each Save replaces the
// matching table inside one transaction, so a crash never leaves a table
// half written.
type Database struct {
	db *sql.DB
}

var _ Store = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            year INTEGER NOT NULL,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY,
            book_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            loan_date TEXT NOT NULL,
            return_date TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func (d *Database) LoadBooks() ([]*Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,year,total_copies,available_copies FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, err
		}
		book, err := RestoreBook(b.ID, b.Title, b.Author, b.Year, b.TotalCopies, b.AvailableCopies)
		if err != nil {
			return nil, fmt.Errorf("book %d: %w", b.ID, err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (d *Database) LoadUsers() ([]*User, error) {
	rows, err := d.db.Query(`SELECT id,name,email FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		user, err := RestoreUser(u.ID, u.Name, u.Email)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", u.ID, err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (d *Database) LoadLoans() ([]*Loan, error) {
	rows, err := d.db.Query(`SELECT id,book_id,user_id,loan_date,COALESCE(return_date,'') FROM loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		var (
			id, bookID, userID   int
			loanDate, returnDate string
		)
		if err := rows.Scan(&id, &bookID, &userID, &loanDate, &returnDate); err != nil {
			return nil, err
		}
		// Reuse the flat-file codec so both backends accept the same dates.
		loan, err := ParseLoan(fmt.Sprintf("%d;%d;%d;%s;%s", id, bookID, userID, loanDate, returnDate))
		if err != nil {
			return nil, fmt.Errorf("loan %d: %w", id, err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func (d *Database) SaveBooks(books []*Book) error {
	return d.replaceTable("books",
		`INSERT INTO books(id,title,author,year,total_copies,available_copies) VALUES(?,?,?,?,?,?)`,
		len(books), func(stmt *sql.Stmt, i int) error {
			b := books[i]
			_, err := stmt.Exec(b.ID, b.Title, b.Author, b.Year, b.TotalCopies, b.AvailableCopies)
			return err
		})
}

func (d *Database) SaveUsers(users []*User) error {
	return d.replaceTable("users",
		`INSERT INTO users(id,name,email) VALUES(?,?,?)`,
		len(users), func(stmt *sql.Stmt, i int) error {
			u := users[i]
			_, err := stmt.Exec(u.ID, u.Name, u.Email)
			return err
		})
}

func (d *Database) SaveLoans(loans []*Loan) error {
	return d.replaceTable("loans",
		`INSERT INTO loans(id,book_id,user_id,loan_date,return_date) VALUES(?,?,?,?,?)`,
		len(loans), func(stmt *sql.Stmt, i int) error {
			l := loans[i]
			var returned sql.NullString
			if l.ReturnDate != nil {
				returned = sql.NullString{String: l.ReturnDate.Format(time.DateOnly), Valid: true}
			}
			_, err := stmt.Exec(l.ID, l.BookID, l.UserID, l.LoanDate.Format(time.DateOnly), returned)
			return err
		})
}

// replaceTable empties table and inserts n rows through insert, all in one
// transaction.
func (d *Database) replaceTable(table, insert string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return tx.Commit()
}
