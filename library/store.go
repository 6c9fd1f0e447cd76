package library

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store persists the three record collections. Every Save call replaces
// the whole collection so the stored copy is always a complete snapshot.
type Store interface {
	LoadBooks() ([]*Book, error)
	LoadUsers() ([]*User, error)
	LoadLoans() ([]*Loan, error)
	SaveBooks(books []*Book) error
	SaveUsers(users []*User) error
	SaveLoans(loans []*Loan) error
	Close() error
}

// FilePaths names the three flat files of a FileStore.
type FilePaths struct {
	Books string
	Users string
	Loans string
}

// FileStore keeps each collection in its own text file, one record per line.
type FileStore struct {
	paths FilePaths
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store over paths, creating parent directories so
// the first save succeeds. The files themselves are created on first save.
func NewFileStore(paths FilePaths) (*FileStore, error) {
	for _, p := range []string{paths.Books, paths.Users, paths.Loans} {
		if strings.TrimSpace(p) == "" {
			return nil, errors.New("file store: every file path must be set")
		}
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "create storage dir %s", dir)
			}
		}
	}
	return &FileStore{paths: paths}, nil
}

// ------------------ Load ------------------

func (s *FileStore) LoadBooks() ([]*Book, error) {
	return loadLines(s.paths.Books, ParseBook)
}

func (s *FileStore) LoadUsers() ([]*User, error) {
	return loadLines(s.paths.Users, ParseUser)
}

func (s *FileStore) LoadLoans() ([]*Loan, error) {
	return loadLines(s.paths.Loans, ParseLoan)
}

// loadLines parses every non-blank line of path. Any bad line aborts the
// whole load. A missing file holds no records.
func loadLines[T any](path string, parse func(string) (T, error)) ([]T, error) {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parse(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, lineNo)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return out, nil
}

// ------------------ Save ------------------

func (s *FileStore) SaveBooks(books []*Book) error {
	return saveLines(s.paths.Books, books, MarshalBook)
}

func (s *FileStore) SaveUsers(users []*User) error {
	return saveLines(s.paths.Users, users, MarshalUser)
}

func (s *FileStore) SaveLoans(loans []*Loan) error {
	return saveLines(s.paths.Loans, loans, MarshalLoan)
}

// saveLines rewrites path from scratch with one line per record.
func saveLines[T any](path string, recs []T, marshal func(T) string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	for _, r := range recs {
		if _, err := w.WriteString(marshal(r) + "\n"); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flush %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// Close is a no-op; files are closed after every load and save.
func (s *FileStore) Close() error { return nil }
