package main

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/aluiziolira/go-bookbloom/export"
	"github.com/aluiziolira/go-bookbloom/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a password with terminal echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword("Password: "); err != nil {
					return err
				}
			}
			if err := a.client.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var firstName, lastName, email, password, socialHandle string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account, then log in with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				entered, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				confirmed, err := readPassword("Confirm password: ")
				if err != nil {
					return err
				}
				if entered != confirmed {
					return fmt.Errorf("passwords do not match")
				}
				password = entered
			}

			profile, err := a.client.Register(cmd.Context(), firstName, lastName, email, password, socialHandle)
			if err != nil {
				return err
			}
			// Registration does not create a session; chain a login
			// with the same credentials.
			if err := a.client.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("registered, but login failed: %w", err)
			}
			fmt.Fprintf(a.out, "Welcome, %s %s! You are now logged in.\n", profile.FirstName, profile.LastName)
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&socialHandle, "social-handle", "", "Social handle URL (optional)")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newBooksCmd(a *app) *cobra.Command {
	var search, output, format string

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List or search the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.client.ListBooks(cmd.Context(), search)
			if err != nil {
				return err
			}

			if output != "" {
				return a.exportBooks(books, format, output)
			}

			if len(books) == 0 {
				fmt.Fprintln(a.out, "No books found.")
				return nil
			}
			printBooks(a, books)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter by title or author")
	cmd.Flags().StringVar(&output, "output", "", "Write results to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv, json, or dual")
	return cmd
}

func (a *app) exportBooks(books []models.Book, format, output string) error {
	writer, err := createWriter(strings.ToLower(format), output)
	if err != nil {
		return err
	}
	if err := writer.Write(books); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := writer.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %d books to %s\n", len(books), output)
	return nil
}

func createWriter(format, filename string) (export.Writer, error) {
	switch format {
	case "json":
		return export.NewJSONWriter(filename)
	case "csv":
		return export.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return export.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printBooks(a *app, books []models.Book) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tYEAR\tPRICE\tSTATE")
	for _, book := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t$%.2f\t%s\n",
			book.ID, book.Title, book.Author, book.YearOfRelease, book.Price, book.State)
	}
	w.Flush()
}

func newCartCmd(a *app) *cobra.Command {
	cart := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client.GetCart(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "Your cart is empty.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tQTY\tSUBTOTAL")
			for _, item := range items {
				fmt.Fprintf(w, "%d\t%s\t%d\t$%.2f\n",
					item.Book.ID, item.Book.Title, item.Quantity, item.Subtotal)
			}
			w.Flush()
			fmt.Fprintf(a.out, "Total: $%.2f\n", models.CartTotal(items))
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add one copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("book id must be an integer: %w", err)
			}
			if err := a.client.AddToCart(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Book added to cart.")
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <book-id> <quantity>",
		Short: "Set the quantity for a cart row (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("book id must be an integer: %w", err)
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %w", err)
			}
			if err := a.client.UpdateCartItem(cmd.Context(), id, quantity); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Cart updated.")
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("book id must be an integer: %w", err)
			}
			if err := a.client.RemoveFromCart(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Book removed from cart.")
			return nil
		},
	}

	cart.AddCommand(list, add, update, remove)
	return cart
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := a.client.Checkout(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Order %s placed. Total: $%.2f\n", order.OrderID, order.Total)
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the account profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.client.Profile(cmd.Context())
			if err != nil {
				return err
			}

			social := "Not provided"
			if profile.SocialHandleURL != nil {
				social = *profile.SocialHandleURL
			}
			fmt.Fprintf(a.out, "Name:          %s %s\n", profile.FirstName, profile.LastName)
			fmt.Fprintf(a.out, "Email:         %s\n", profile.Email)
			fmt.Fprintf(a.out, "Social handle: %s\n", social)
			fmt.Fprintf(a.out, "Member since:  %s\n", profile.CreatedAt.Format("January 2, 2006"))
			return nil
		},
	}
}
