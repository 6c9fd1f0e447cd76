package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"library-lending/library"
)

const separator = "---------------------------------------------"

const menuText = `
********************
 1. Add book
 2. Search books
 3. All books
 4. Add reader
 5. Search readers
 6. All readers
 7. Lend book
 8. Return book
 9. Reader's books
10. All books on loan
11. Expired loans
12. Reader loan history
13. Book loan history
 0. Exit
`

// console is the numbered interactive menu over a Library.
type console struct {
	lib         *library.Library
	sc          *bufio.Scanner
	out         io.Writer
	interactive bool
}

func newConsole(lib *library.Library, in io.Reader, out io.Writer, interactive bool) *console {
	return &console{lib: lib, sc: bufio.NewScanner(in), out: out, interactive: interactive}
}

func (c *console) run() {
	for {
		if c.interactive {
			fmt.Fprint(c.out, menuText)
		}
		choice, ok := c.readLine("Choose an item: ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			c.handleAddBook()
		case "2":
			c.searchBooks()
			c.pause()
		case "3":
			c.handleListBooks()
		case "4":
			c.handleAddUser()
		case "5":
			c.searchUsers()
			c.pause()
		case "6":
			c.handleListUsers()
		case "7":
			c.handleBorrow()
		case "8":
			c.handleReturn()
		case "9":
			c.handleUserBooks()
		case "10":
			c.handleActiveLoans()
		case "11":
			c.handleExpiredLoans()
		case "12":
			c.handleUserHistory()
		case "13":
			c.handleBookHistory()
		case "0":
			fmt.Fprintln(c.out, "Goodbye!")
			return
		default:
			fmt.Fprintln(c.out, "Unknown choice. Try again.")
		}
	}
}

// ------------------ Catalog ------------------

func (c *console) handleAddBook() {
	fmt.Fprintln(c.out, "*** New book ***")
	title, ok := c.readLine("Title: ")
	if !ok {
		return
	}
	author, ok := c.readLine("Author: ")
	if !ok {
		return
	}
	year, ok := c.readInt("Year: ", "Enter a valid year.")
	if !ok {
		return
	}
	copies, ok := c.readInt("Number of copies: ", "Enter a valid number of copies.")
	if !ok {
		return
	}

	book, err := library.NewBook(title, author, year, copies)
	if err != nil {
		c.fail(err)
		return
	}
	id, err := c.lib.AddBook(book)
	if err != nil {
		c.fail(err)
		return
	}
	if b, ok := c.lib.Book(id); ok {
		fmt.Fprintln(c.out, b)
	}
	fmt.Fprintln(c.out, "Book added.")
	c.pause()
}

func (c *console) searchBooks() []*library.Book {
	fmt.Fprintln(c.out, "*** Book search ***")
	query, ok := c.readLine("Title, author or year: ")
	if !ok {
		return nil
	}
	books := c.lib.SearchBooks(query)
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books found.")
		return nil
	}
	for _, b := range books {
		fmt.Fprintln(c.out, b)
	}
	return books
}

func (c *console) handleListBooks() {
	books := c.lib.Books()
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books registered.")
	} else {
		fmt.Fprintln(c.out, "\n*** All books ***")
		for _, b := range books {
			fmt.Fprintln(c.out, b)
		}
	}
	c.pause()
}

// ------------------ Readers ------------------

func (c *console) handleAddUser() {
	fmt.Fprintln(c.out, "*** New reader ***")
	name, ok := c.readLine("Name: ")
	if !ok {
		return
	}
	email, ok := c.readLine("Email: ")
	if !ok {
		return
	}

	user, err := library.NewUser(name, email)
	if err != nil {
		c.fail(err)
		return
	}
	id, err := c.lib.AddUser(user)
	if err != nil {
		c.fail(err)
		return
	}
	if u, ok := c.lib.User(id); ok {
		fmt.Fprintln(c.out, u)
	}
	fmt.Fprintln(c.out, "Reader added.")
	c.pause()
}

func (c *console) searchUsers() []*library.User {
	fmt.Fprintln(c.out, "*** Reader search ***")
	query, ok := c.readLine("Id, name or email: ")
	if !ok {
		return nil
	}
	users := c.lib.SearchUsers(query)
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No readers found.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintln(c.out, u)
	}
	return users
}

func (c *console) handleListUsers() {
	users := c.lib.Users()
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No readers registered.")
	} else {
		fmt.Fprintln(c.out, "\n*** All readers ***")
		for _, u := range users {
			fmt.Fprintln(c.out, u)
		}
	}
	c.pause()
}

// pickUser searches readers and asks for the id of one of them.
func (c *console) pickUser() (*library.User, bool) {
	if len(c.searchUsers()) == 0 {
		return nil, false
	}
	id, ok := c.readInt("Reader id: ", "Enter a valid id.")
	if !ok {
		return nil, false
	}
	u, found := c.lib.User(id)
	if !found {
		fmt.Fprintln(c.out, "Unknown reader id.")
		return nil, false
	}
	return u, true
}

func (c *console) pickBook() (*library.Book, bool) {
	if len(c.searchBooks()) == 0 {
		return nil, false
	}
	id, ok := c.readInt("Book id: ", "Enter a valid id.")
	if !ok {
		return nil, false
	}
	b, found := c.lib.Book(id)
	if !found {
		fmt.Fprintln(c.out, "Unknown book id.")
		return nil, false
	}
	return b, true
}

// ------------------ Circulation ------------------

func (c *console) handleBorrow() {
	fmt.Fprintln(c.out, "*** Lend a book ***")
	defer c.pause()

	user, ok := c.pickUser()
	if !ok {
		return
	}
	book, ok := c.pickBook()
	if !ok {
		return
	}
	loan, err := c.lib.BorrowBook(user.ID, book.ID)
	if err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Book lent.")
	fmt.Fprintln(c.out, loan.Describe(c.lib, c.lib.Today()))
}

func (c *console) handleReturn() {
	fmt.Fprintln(c.out, "*** Return a book ***")
	defer c.pause()

	user, ok := c.pickUser()
	if !ok {
		return
	}
	loans := c.lib.UserActiveLoans(user.ID)
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "The reader holds no books.")
		return
	}
	fmt.Fprintln(c.out, "\nBooks held by the reader:")
	c.printLoans(loans)

	bookID, ok := c.readInt("Book id to return: ", "Enter a valid id.")
	if !ok {
		return
	}
	loan, err := c.lib.ReturnBook(user.ID, bookID)
	if err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Book returned.")
	fmt.Fprintln(c.out, loan.Describe(c.lib, c.lib.Today()))
}

func (c *console) handleUserBooks() {
	fmt.Fprintln(c.out, "*** Books held by a reader ***")
	defer c.pause()

	user, ok := c.pickUser()
	if !ok {
		return
	}
	loans := c.lib.UserActiveLoans(user.ID)
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "The reader holds no books.")
		return
	}
	fmt.Fprintln(c.out, "*** Current loans of the reader ***")
	c.printLoans(loans)
}

func (c *console) handleActiveLoans() {
	defer c.pause()
	loans := c.lib.ActiveLoans()
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "No books are on loan right now.")
		return
	}
	fmt.Fprintln(c.out, "\n*** All books on loan ***")
	c.printLoans(loans)
}

func (c *console) handleExpiredLoans() {
	defer c.pause()
	loans := c.lib.ExpiredLoans()
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "No expired loans.")
		return
	}
	fmt.Fprintln(c.out, "\n*** Expired loans ***")
	c.printLoans(loans)
}

func (c *console) handleUserHistory() {
	fmt.Fprintln(c.out, "*** Reader loan history ***")
	defer c.pause()

	user, ok := c.pickUser()
	if !ok {
		return
	}
	loans := c.lib.UserLoanHistory(user.ID)
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "The reader has never borrowed a book.")
		return
	}
	fmt.Fprintln(c.out, "\n*** Loan history of the reader ***")
	c.printLoans(loans)
}

func (c *console) handleBookHistory() {
	fmt.Fprintln(c.out, "*** Book loan history ***")
	defer c.pause()

	book, ok := c.pickBook()
	if !ok {
		return
	}
	loans := c.lib.BookLoanHistory(book.ID)
	if len(loans) == 0 {
		fmt.Fprintln(c.out, "The book has never been lent.")
		return
	}
	fmt.Fprintln(c.out, "\n*** Loan history of the book ***")
	c.printLoans(loans)
}

// ------------------ Input helpers ------------------

func (c *console) printLoans(loans []*library.Loan) {
	today := c.lib.Today()
	for _, ln := range loans {
		fmt.Fprintln(c.out, ln.Describe(c.lib, today))
		fmt.Fprintln(c.out, separator)
	}
}

func (c *console) fail(err error) {
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

// readLine prints prompt on a terminal and returns the next trimmed line.
// ok is false once input is exhausted.
func (c *console) readLine(prompt string) (string, bool) {
	if c.interactive {
		fmt.Fprint(c.out, prompt)
	}
	if !c.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.sc.Text()), true
}

// readInt keeps asking until the answer is a number.
func (c *console) readInt(prompt, retry string) (int, bool) {
	for {
		s, ok := c.readLine(prompt)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
		fmt.Fprintln(c.out, retry)
	}
}

func (c *console) pause() {
	if !c.interactive {
		return
	}
	fmt.Fprint(c.out, "\nPress Enter to return to the menu...")
	c.sc.Scan()
}
