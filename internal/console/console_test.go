package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accountapp "github.com/dwikikusuma/minishop/internal/account/app"
	accountmem "github.com/dwikikusuma/minishop/internal/account/infra/memory"
	cartapp "github.com/dwikikusuma/minishop/internal/cart/app"
	cartmem "github.com/dwikikusuma/minishop/internal/cart/infra/memory"
	catalogapp "github.com/dwikikusuma/minishop/internal/catalog/app"
	catalogdomain "github.com/dwikikusuma/minishop/internal/catalog/domain"
	catalogmem "github.com/dwikikusuma/minishop/internal/catalog/infra/memory"
	"github.com/dwikikusuma/minishop/internal/memstore"
)

type shop struct {
	accounts *accountapp.Service
	catalog  *catalogapp.Service
	cart     *cartapp.Service
	phone    catalogdomain.Product
	cable    catalogdomain.Product
}

func newShop(t *testing.T) shop {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()

	s := shop{
		accounts: accountapp.NewService(accountmem.NewUserRepo(db), accountapp.WithHashCost(bcrypt.MinCost)),
		catalog:  catalogapp.NewService(catalogmem.NewProductRepo(db)),
		cart:     cartapp.NewService(cartmem.NewUnitOfWork(db, "")),
	}
	var err error
	s.phone, err = s.catalog.CreateProduct(ctx, "Phone", "", "USD", 1000, 10)
	require.NoError(t, err)
	s.cable, err = s.catalog.CreateProduct(ctx, "Cable", "", "USD", 500, 3)
	require.NoError(t, err)
	return s
}

func run(t *testing.T, s shop, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	err := New(in, &out, s.accounts, s.catalog, s.cart, nil).Run(context.Background())
	require.NoError(t, err)
	return out.String()
}

func TestShoppingSession(t *testing.T) {
	s := newShop(t)

	out := run(t, s,
		"1", "alice", "secret",
		"2", "alice", "secret",
		"1", "2", "2", // 2 x Phone
		"1", "1", "5", // too many cables
		"1", "1", "abc",
		"1", "1", "1", // 1 x Cable
		"3",
		"2", "1", "10", // remove all phones
		"4",
		"4",
		"5",
		"3",
	)

	assert.Contains(t, out, "Registration successful!")
	assert.Contains(t, out, "WELCOME, ALICE!")
	assert.Contains(t, out, "2 x Phone added to cart!")
	assert.Contains(t, out, "Not enough stock available!")
	assert.Contains(t, out, "Invalid quantity!")
	assert.Contains(t, out, "1 x Cable added to cart!")
	assert.Contains(t, out, "Total: 25.00 USD")
	assert.Contains(t, out, "Removed 2 x Phone from cart.")
	assert.Contains(t, out, "Total paid: 5.00 USD")
	assert.Contains(t, out, "Your cart is empty. Nothing to checkout.")
	assert.Contains(t, out, "Logged out successfully, alice!")
	assert.Contains(t, out, "Thanks for using our Mini-Ecommerce!")

	ctx := context.Background()
	phone, err := s.cart.Stock(ctx, s.phone.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, phone)
	cable, err := s.cart.Stock(ctx, s.cable.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cable)
}

func TestMenuInputErrors(t *testing.T) {
	s := newShop(t)

	out := run(t, s,
		"",
		"9",
		"1", "bob", "secret",
		"1", "carol", "pw",
		"2", "nobody", "secret",
		"1", "alice", "secret",
		"1", "alice", "secret",
		"2", "alice", "secret",
		"1", "7",
		"1", "x",
		"1", "1", "0",
		"2",
		"8",
	)

	assert.Contains(t, out, "Input cannot be empty!")
	assert.Contains(t, out, "Invalid option, try again.")
	assert.Contains(t, out, "Username must be at least 4 letters")
	assert.Contains(t, out, "Password must be at least 4 characters")
	assert.Contains(t, out, "Invalid credentials. Please try again.")
	assert.Contains(t, out, "Username already exists. Try another.")
	assert.Contains(t, out, "Invalid choice!")
	assert.Contains(t, out, "Invalid number!")
	assert.Contains(t, out, "Quantity must be positive!")
	assert.Contains(t, out, "Your cart is empty. Nothing to remove.")
	assert.Contains(t, out, "Invalid option!")
}

type brokenCatalog struct{}

func (brokenCatalog) FetchProducts(context.Context) ([]catalogdomain.Product, error) {
	return []catalogdomain.Product{}, errors.New("catalog down")
}

func TestCatalogUnavailable(t *testing.T) {
	s := newShop(t)
	var out bytes.Buffer
	in := strings.NewReader("1\nalice\nsecret\n2\nalice\nsecret\n1\n5\n3\n")

	err := New(in, &out, s.accounts, brokenCatalog{}, s.cart, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Device list is unavailable right now.")
	assert.Contains(t, out.String(), "No devices available.")
}
