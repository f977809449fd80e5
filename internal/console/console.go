// Package console is the line-oriented shop front end: register, login, browse the
// device list and drive the cart. It only renders outcomes; every rule lives in the
// services it calls.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	accountdomain "github.com/dwikikusuma/minishop/internal/account/domain"
	cartdomain "github.com/dwikikusuma/minishop/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/minishop/internal/catalog/domain"
)

type Accounts interface {
	Register(ctx context.Context, username, password string) (accountdomain.User, error)
	Login(ctx context.Context, username, password string) (accountdomain.User, error)
}

type Catalog interface {
	FetchProducts(ctx context.Context) ([]catalogdomain.Product, error)
}

type Cart interface {
	AddToCart(ctx context.Context, userID, productID string, qty int) (cartdomain.CartLine, error)
	RemoveFromCart(ctx context.Context, userID, productID string, qty int) (int, error)
	ViewCart(ctx context.Context, userID string) (cartdomain.CartView, error)
	Checkout(ctx context.Context, userID string) (cartdomain.Receipt, error)
}

type App struct {
	in       *bufio.Scanner
	out      io.Writer
	accounts Accounts
	catalog  Catalog
	cart     Cart
	log      *zap.Logger
}

func New(in io.Reader, out io.Writer, accounts Accounts, catalog Catalog, cart Cart, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		in:       bufio.NewScanner(in),
		out:      out,
		accounts: accounts,
		catalog:  catalog,
		cart:     cart,
		log:      log,
	}
}

// errEOF ends the session when input runs out.
var errEOF = errors.New("input closed")

// Run serves the start menu until the user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.println(" === Welcome to Mini E-Commerce ===")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.println("\n 1. Register")
		a.println(" 2. Login")
		a.println(" 3. Exit")

		choice, err := a.prompt(" Choose an option: ")
		if err != nil {
			return nil
		}

		switch choice {
		case "":
			a.println(" Input cannot be empty!")
		case "1":
			if err := a.register(ctx); errors.Is(err, errEOF) {
				return nil
			}
		case "2":
			user, err := a.login(ctx)
			if errors.Is(err, errEOF) {
				return nil
			}
			if err == nil {
				if err := a.shop(ctx, user); errors.Is(err, errEOF) {
					return nil
				}
			}
		case "3":
			a.println("Thanks for using our Mini-Ecommerce!")
			return nil
		default:
			a.println(" Invalid option, try again.")
		}
	}
}

func (a *App) register(ctx context.Context) error {
	a.println("\n                 -USER REGISTRATION-                ")
	username, err := a.prompt(" Enter username: ")
	if err != nil {
		return err
	}
	password, err := a.prompt(" Enter password: ")
	if err != nil {
		return err
	}

	_, err = a.accounts.Register(ctx, username, password)
	switch {
	case err == nil:
		a.println("\n Registration successful! You can now log in.")
	case errors.Is(err, accountdomain.ErrUsernameTaken):
		a.println(" Username already exists. Try another.")
	case errors.Is(err, accountdomain.ErrInvalidUsername), errors.Is(err, accountdomain.ErrInvalidPassword):
		a.printf(" %s\n", capitalize(err.Error()))
	default:
		a.log.Error("register failed", zap.Error(err))
		a.println(" Registration failed. Please try again later.")
	}
	return nil
}

func (a *App) login(ctx context.Context) (accountdomain.User, error) {
	a.println("\n                     -LOGIN-                        ")
	username, err := a.prompt(" Enter username: ")
	if err != nil {
		return accountdomain.User{}, err
	}
	password, err := a.prompt(" Enter password: ")
	if err != nil {
		return accountdomain.User{}, err
	}

	user, err := a.accounts.Login(ctx, username, password)
	switch {
	case err == nil:
		a.println(" ==================================================")
		a.printf("                 WELCOME, %s!           \n", strings.ToUpper(user.Username))
		a.println(" ==================================================")
		return user, nil
	case errors.Is(err, accountdomain.ErrInvalidCredentials):
		a.println(" Invalid credentials. Please try again.")
	default:
		a.log.Error("login failed", zap.Error(err))
		a.println(" Login failed. Please try again later.")
	}
	return accountdomain.User{}, err
}

func (a *App) shop(ctx context.Context, user accountdomain.User) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		products := a.showDevices(ctx)

		a.println("\n Options:")
		a.println(" [1]. Add to Cart")
		a.println(" [2]. Remove from Cart")
		a.println(" [3]. View Cart")
		a.println(" [4]. Checkout")
		a.println(" [5]. Logout")

		choice, err := a.prompt(" Choose an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = a.addToCart(ctx, user, products)
		case "2":
			err = a.removeFromCart(ctx, user)
		case "3":
			a.showCart(ctx, user)
		case "4":
			a.checkout(ctx, user)
		case "5":
			a.printf(" Logged out successfully, %s!\n", user.Username)
			return nil
		default:
			a.println(" Invalid option!")
		}
		if errors.Is(err, errEOF) {
			return err
		}
	}
}

func (a *App) showDevices(ctx context.Context) []catalogdomain.Product {
	products, err := a.catalog.FetchProducts(ctx)
	a.println("\n           === Device List ===")
	if err != nil {
		a.log.Error("fetch products failed", zap.Error(err))
		a.println(" Device list is unavailable right now.")
		return products
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " No.\tDevice\tPrice\tStock")
	for i, p := range products {
		fmt.Fprintf(tw, " %d\t%s\t%s\t%d\n", i+1, p.Name, p.Price, p.Stock)
	}
	_ = tw.Flush()
	a.println(" ----------------------------------------------")
	return products
}

func (a *App) addToCart(ctx context.Context, user accountdomain.User, products []catalogdomain.Product) error {
	if len(products) == 0 {
		a.println(" No devices available.")
		return nil
	}
	idx, err := a.pick(" Enter device number: ", len(products))
	if err != nil || idx < 0 {
		return err
	}
	qty, ok, err := a.quantity()
	if err != nil || !ok {
		return err
	}

	p := products[idx]
	if _, err := a.cart.AddToCart(ctx, user.ID, p.ID, qty); err != nil {
		a.renderCartErr("Add to cart failed", err)
		return nil
	}
	a.printf(" %d x %s added to cart!\n", qty, p.Name)
	return nil
}

func (a *App) removeFromCart(ctx context.Context, user accountdomain.User) error {
	view, err := a.cart.ViewCart(ctx, user.ID)
	if err != nil {
		a.renderCartErr("Remove failed", err)
		return nil
	}
	if view.Empty() {
		a.println(" Your cart is empty. Nothing to remove.")
		return nil
	}
	a.renderCart(view)

	idx, err := a.pick(" Enter item number to remove: ", len(view.Lines))
	if err != nil || idx < 0 {
		return err
	}
	qty, ok, err := a.quantity()
	if err != nil || !ok {
		return err
	}

	line := view.Lines[idx]
	removed, err := a.cart.RemoveFromCart(ctx, user.ID, line.ProductID, qty)
	if err != nil {
		a.renderCartErr("Remove failed", err)
		return nil
	}
	a.printf(" Removed %d x %s from cart.\n", removed, line.ProductName)
	return nil
}

func (a *App) showCart(ctx context.Context, user accountdomain.User) {
	view, err := a.cart.ViewCart(ctx, user.ID)
	if err != nil {
		a.renderCartErr("View cart failed", err)
		return
	}
	if view.Empty() {
		a.println("\n ================== YOUR CART ==================")
		a.println(" Your cart is empty.")
		return
	}
	a.renderCart(view)
}

func (a *App) renderCart(view cartdomain.CartView) {
	a.println("\n ================== YOUR CART ==================")
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " No.\tDevice\tQty\tPrice\tSubtotal")
	for i, l := range view.Lines {
		fmt.Fprintf(tw, " %d\t%s\t%d\t%s\t%s\n", i+1, l.ProductName, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	_ = tw.Flush()
	a.println(" ----------------------------------------------")
	a.printf(" Total: %s\n", view.GrandTotal)
}

func (a *App) checkout(ctx context.Context, user accountdomain.User) {
	a.println("\n               === Checkout ===")
	receipt, err := a.cart.Checkout(ctx, user.ID)
	if err != nil {
		a.renderCartErr("Checkout failed", err)
		return
	}
	for _, l := range receipt.Lines {
		a.printf(" %d x %s = %s\n", l.Quantity, l.ProductName, l.LineTotal)
	}
	a.printf(" Total paid: %s\n", receipt.Total)
	a.println(" Checkout complete! Thank you for your purchase.")
}

func (a *App) renderCartErr(action string, err error) {
	switch cartdomain.Kind(err) {
	case "invalid_quantity":
		a.println(" Quantity must be positive!")
	case "product_not_found":
		a.println(" Device not found!")
	case "insufficient_stock":
		a.println(" Not enough stock available!")
	case "line_not_found":
		a.println(" That item is not in your cart.")
	case "empty_cart":
		a.println(" Your cart is empty. Nothing to checkout.")
	case "currency_mismatch":
		a.println(" That device is priced in another currency than your cart.")
	default:
		a.log.Error(action, zap.Error(err))
		a.printf(" %s. Nothing was changed, please try again.\n", action)
	}
}

// pick reads a 1-based list number and returns the 0-based index, or -1 after
// telling the user the input was wrong.
func (a *App) pick(prompt string, n int) (int, error) {
	raw, err := a.prompt(prompt)
	if err != nil {
		return -1, err
	}
	v, convErr := strconv.Atoi(raw)
	if convErr != nil {
		a.println(" Invalid number!")
		return -1, nil
	}
	if v < 1 || v > n {
		a.println(" Invalid choice!")
		return -1, nil
	}
	return v - 1, nil
}

func (a *App) quantity() (int, bool, error) {
	raw, err := a.prompt(" Enter quantity: ")
	if err != nil {
		return 0, false, err
	}
	v, convErr := strconv.Atoi(raw)
	if convErr != nil {
		a.println(" Invalid quantity!")
		return 0, false, nil
	}
	if v <= 0 {
		a.println(" Quantity must be positive!")
		return 0, false, nil
	}
	return v, true, nil
}

func (a *App) prompt(p string) (string, error) {
	fmt.Fprint(a.out, p)
	if !a.in.Scan() {
		a.println("")
		return "", errEOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
