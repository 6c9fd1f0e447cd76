// Command import_books loads a catalog file of title;author;year;copies
// lines into the library. Entries that already exist get the extra copies.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

func main() {
	catalog := "catalog.txt"
	if len(os.Args) > 1 {
		catalog = os.Args[1]
	}

	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg.Log, "import")
	defer func() { _ = log.Sync() }()

	var store library.Store
	if cfg.Storage.Backend == config.BackendSQLite {
		store, err = library.NewDatabase(cfg.Storage.SQLitePath)
	} else {
		store, err = library.NewFileStore(library.FilePaths{
			Books: cfg.Storage.BooksPath(),
			Users: cfg.Storage.UsersPath(),
			Loans: cfg.Storage.LoansPath(),
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}

	lib, err := library.New(store, library.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading library: %v\n", err)
		os.Exit(1)
	}
	defer lib.Close()

	f, err := os.Open(catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("Importing books from %s...\n", catalog)
	res := importCatalog(lib, f, os.Stdout)

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d entries\n", res.imported)
	fmt.Printf("Errors: %d\n", res.failed)

	if res.imported > 0 {
		fmt.Println("\nCatalog:")
		fmt.Printf("%-4s %-45s %-30s %-6s %s\n", "ID", "Title", "Author", "Year", "Available")
		fmt.Println(strings.Repeat("-", 100))
		for _, b := range lib.Books() {
			fmt.Printf("%-4d %-45s %-30s %-6d %d/%d\n", b.ID,
				truncateString(b.Title, 45), truncateString(b.Author, 30),
				b.Year, b.AvailableCopies, b.TotalCopies)
		}
	}
}

type importResult struct {
	imported int
	failed   int
}

// importCatalog adds every non-blank line of r to lib and reports each one
// on out. A bad line is counted and skipped.
func importCatalog(lib *library.Library, r io.Reader, out io.Writer) importResult {
	var res importResult
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		book, err := parseCatalogLine(line)
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - %v\n", lineNo, err)
			res.failed++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", book.Title, book.Author)
		id, err := lib.AddBook(book)
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.failed++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", id)
		res.imported++
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(out, "ERROR - reading catalog: %v\n", err)
		res.failed++
	}
	return res
}

func parseCatalogLine(line string) (*library.Book, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 4 {
		return nil, fmt.Errorf("want title;author;year;copies, got %q", line)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("bad year %q", parts[2])
	}
	copies, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return nil, fmt.Errorf("bad number of copies %q", parts[3])
	}
	return library.NewBook(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), year, copies)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
