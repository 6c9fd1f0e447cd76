package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"library-lending/config"
	"library-lending/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (a *app) booksCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "List the catalog, or search it by title, author or year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books := a.lib.Books()
			if len(args) == 1 {
				books = a.lib.SearchBooks(args[0])
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), books)
			}
			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books found.")
			}
			for _, b := range books {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "users [query]",
		Short: "List readers, or search them by id, name or email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users := a.lib.Users()
			if len(args) == 1 {
				users = a.lib.SearchUsers(args[0])
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), users)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No readers found.")
			}
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) loansCmd() *cobra.Command {
	var asJSON, active, expired bool
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans: all of them, only active ones, or only expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var loans []*library.Loan
			switch {
			case expired:
				loans = a.lib.ExpiredLoans()
			case active:
				loans = a.lib.ActiveLoans()
			default:
				loans = a.lib.Loans()
			}
			return a.printLoans(cmd.OutOrStdout(), loans, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&active, "active", false, "only loans whose copy is still out")
	cmd.Flags().BoolVar(&expired, "expired", false, "only active loans past their due date")
	cmd.MarkFlagsMutuallyExclusive("active", "expired")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		asJSON         bool
		userID, bookID int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the full loan history of a reader or of a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var loans []*library.Loan
			if cmd.Flags().Changed("user") {
				if _, ok := a.lib.User(userID); !ok {
					return fmt.Errorf("%w: id=%d", library.ErrUserNotFound, userID)
				}
				loans = a.lib.UserLoanHistory(userID)
			} else {
				if _, ok := a.lib.Book(bookID); !ok {
					return fmt.Errorf("%w: id=%d", library.ErrBookNotFound, bookID)
				}
				loans = a.lib.BookLoanHistory(bookID)
			}
			return a.printLoans(cmd.OutOrStdout(), loans, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVar(&userID, "user", 0, "reader id")
	cmd.Flags().IntVar(&bookID, "book", 0, "book id")
	cmd.MarkFlagsOneRequired("user", "book")
	cmd.MarkFlagsMutuallyExclusive("user", "book")
	return cmd
}

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow USER_ID BOOK_ID",
		Short: "Lend one copy of a book to a reader",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, bookID, err := parseIDs(args)
			if err != nil {
				return err
			}
			loan, err := a.lib.BorrowBook(userID, bookID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loan.Describe(a.lib, a.lib.Today()))
			return nil
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return USER_ID BOOK_ID",
		Short: "Close a reader's active loan of a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, bookID, err := parseIDs(args)
			if err != nil {
				return err
			}
			loan, err := a.lib.ReturnBook(userID, bookID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loan.Describe(a.lib, a.lib.Today()))
			return nil
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy all books, readers and loans to the other storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == a.cfg.Storage.Backend {
				return fmt.Errorf("library already uses the %s backend", to)
			}
			dst, err := openStore(a.cfg.Storage, to)
			if err != nil {
				return err
			}
			defer dst.Close()

			if err := a.lib.ExportTo(dst); err != nil {
				return fmt.Errorf("migrate to %s: %w", to, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d books, %d readers and %d loans to the %s backend.\n",
				len(a.lib.Books()), len(a.lib.Users()), len(a.lib.Loans()), to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", config.BackendSQLite, "target backend: file or sqlite")
	return cmd
}

// loanView is the JSON shape of a loan with its derived fields.
type loanView struct {
	*library.Loan
	DueDate time.Time `json:"due_date"`
	Status  string    `json:"status"`
}

func (a *app) printLoans(w io.Writer, loans []*library.Loan, asJSON bool) error {
	today := a.lib.Today()
	if asJSON {
		views := make([]loanView, 0, len(loans))
		for _, ln := range loans {
			views = append(views, loanView{Loan: ln, DueDate: ln.DueDate(), Status: ln.Status(today)})
		}
		return writeJSON(w, views)
	}
	if len(loans) == 0 {
		fmt.Fprintln(w, "No loans found.")
		return nil
	}
	for _, ln := range loans {
		fmt.Fprintln(w, ln.Describe(a.lib, today))
		fmt.Fprintln(w, separator)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDs(args []string) (userID, bookID int, err error) {
	ids := make([]int, len(args))
	for i, s := range args {
		ids[i], err = strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, 0, errors.New("ids must be whole numbers: " + s)
		}
	}
	return ids[0], ids[1], nil
}
