package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/minishop/internal/cart/app"
	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/internal/cart/infra/memory"
	"github.com/dwikikusuma/minishop/internal/memstore"
	"github.com/dwikikusuma/minishop/pkg/metrics"
)

type CartServiceSuite struct {
	suite.Suite

	ctx     context.Context
	db      *memstore.DB
	svc     *app.Service
	metrics *metrics.CartMetrics
	user    string
	phone   string
	cable   string
	clock   time.Time
}

func TestCartServiceSuite(t *testing.T) {
	suite.Run(t, new(CartServiceSuite))
}

func (s *CartServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = memstore.New()
	s.user = uuid.NewString()
	s.phone = s.seed("Phone", 1000, 10)
	s.cable = s.seed("Cable", 500, 3)
	s.clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.metrics = metrics.NewCartMetrics(prometheus.NewRegistry())

	s.svc = app.NewService(memory.NewUnitOfWork(s.db, "minishop.checkouts"),
		app.WithMetrics(s.metrics),
		app.WithClock(func() time.Time { return s.clock }),
	)
}

func (s *CartServiceSuite) seed(name string, price int64, stock int) string {
	return s.seedIn(name, price, "USD", stock)
}

func (s *CartServiceSuite) seedIn(name string, price int64, currency string, stock int) string {
	id := uuid.NewString()
	s.Require().NoError(s.db.Update(func(tx *memstore.Tx) error {
		return tx.PutProduct(memstore.Product{ID: id, Name: name, PriceAmount: price, Currency: currency, Stock: stock})
	}))
	return id
}

func (s *CartServiceSuite) stock(id string) int {
	n, err := s.svc.Stock(s.ctx, id)
	s.Require().NoError(err)
	return n
}

func (s *CartServiceSuite) setPrice(id string, price int64) {
	s.Require().NoError(s.db.Update(func(tx *memstore.Tx) error {
		p, _ := tx.Product(id)
		p.PriceAmount = price
		return tx.PutProduct(p)
	}))
}

func (s *CartServiceSuite) TestAddBeyondStockLeavesNothing() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.cable, 5)
	s.ErrorIs(err, domain.ErrInsufficientStock)

	s.Equal(3, s.stock(s.cable))
	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.True(view.Empty())
}

func (s *CartServiceSuite) TestAddBeyondInt4IsShort() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.cable, math.MaxInt32+1)
	s.ErrorIs(err, domain.ErrInsufficientStock)
	s.Equal(3, s.stock(s.cable))
}

func (s *CartServiceSuite) TestMixedCurrencyRejected() {
	kabel := s.seedIn("Kabel", 1500000, "IDR", 5)

	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 1)
	s.Require().NoError(err)

	_, err = s.svc.AddToCart(s.ctx, s.user, kabel, 1)
	s.ErrorIs(err, domain.ErrCurrencyMismatch)
	s.Equal(5, s.stock(kabel))

	receipt, err := s.svc.Checkout(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(domain.Money{Currency: "USD", Amount: 1000}, receipt.Total)
	s.Len(receipt.Lines, 1)

	// an emptied cart takes any currency again
	line, err := s.svc.AddToCart(s.ctx, s.user, kabel, 2)
	s.Require().NoError(err)
	s.Equal("IDR", line.UnitPrice.Currency)
	s.Equal(3, s.stock(kabel))
}

func (s *CartServiceSuite) TestAddTwiceMergesLine() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 2)
	s.Require().NoError(err)
	line, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 3)
	s.Require().NoError(err)

	s.Equal(5, line.Quantity)
	s.Equal(5, s.stock(s.phone))
}

func (s *CartServiceSuite) TestPriceFrozenAtFirstAdd() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 1)
	s.Require().NoError(err)

	s.setPrice(s.phone, 9999)
	line, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 1)
	s.Require().NoError(err)

	s.Equal(domain.Money{Currency: "USD", Amount: 1000}, line.UnitPrice)
}

func (s *CartServiceSuite) TestRemoveCapsAtLineQuantity() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 4)
	s.Require().NoError(err)
	s.Equal(6, s.stock(s.phone))

	removed, err := s.svc.RemoveFromCart(s.ctx, s.user, s.phone, 10)
	s.Require().NoError(err)

	s.Equal(4, removed)
	s.Equal(10, s.stock(s.phone))
	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.True(view.Empty())
}

func (s *CartServiceSuite) TestPartialRemoveKeepsLine() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 4)
	s.Require().NoError(err)

	removed, err := s.svc.RemoveFromCart(s.ctx, s.user, s.phone, 1)
	s.Require().NoError(err)
	s.Equal(1, removed)

	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(view.Lines, 1)
	s.Equal(3, view.Lines[0].Quantity)
	s.Equal(7, s.stock(s.phone))
}

func (s *CartServiceSuite) TestRemoveMissingLine() {
	_, err := s.svc.RemoveFromCart(s.ctx, s.user, s.phone, 1)
	s.ErrorIs(err, domain.ErrLineNotFound)
	s.Equal(10, s.stock(s.phone))
}

func (s *CartServiceSuite) TestCheckoutTotalsAndClears() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 2)
	s.Require().NoError(err)
	_, err = s.svc.AddToCart(s.ctx, s.user, s.cable, 1)
	s.Require().NoError(err)

	receipt, err := s.svc.Checkout(s.ctx, s.user)
	s.Require().NoError(err)

	s.Equal(domain.Money{Currency: "USD", Amount: 2500}, receipt.Total)
	s.Equal("25.00 USD", receipt.Total.String())
	s.Equal(s.clock, receipt.CheckedOutAt)
	s.Len(receipt.Lines, 2)
	s.Equal(8, s.stock(s.phone))
	s.Equal(2, s.stock(s.cable))

	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.True(view.Empty())

	s.Require().NoError(s.db.View(func(tx *memstore.Tx) error {
		events := tx.Events()
		s.Require().Len(events, 1)
		s.Equal(receipt.ID, events[0].ID)
		s.Equal(s.user, events[0].Key)
		s.Contains(string(events[0].Payload), `"total_amount":2500`)
		return nil
	}))
}

func (s *CartServiceSuite) TestCheckoutEmptyCart() {
	_, err := s.svc.Checkout(s.ctx, s.user)
	s.ErrorIs(err, domain.ErrEmptyCart)

	s.Require().NoError(s.db.View(func(tx *memstore.Tx) error {
		s.Empty(tx.Events())
		return nil
	}))
}

func (s *CartServiceSuite) TestViewCartIsIdempotent() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 2)
	s.Require().NoError(err)
	_, err = s.svc.AddToCart(s.ctx, s.user, s.cable, 1)
	s.Require().NoError(err)

	first, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	second, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(int64(2500), first.GrandTotal.Amount)
	s.Equal("Phone", first.Lines[0].ProductName)
	s.Equal(int64(2000), first.Lines[0].LineTotal.Amount)
}

func (s *CartServiceSuite) TestValidation() {
	cases := []struct {
		name string
		user string
		qty  int
		want error
	}{
		{"zero qty", s.user, 0, domain.ErrInvalidQuantity},
		{"negative qty", s.user, -2, domain.ErrInvalidQuantity},
		{"blank user", "  ", 1, domain.ErrInvalidUser},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.AddToCart(s.ctx, tc.user, s.phone, tc.qty)
			s.ErrorIs(err, tc.want)
			_, err = s.svc.RemoveFromCart(s.ctx, tc.user, s.phone, tc.qty)
			s.ErrorIs(err, tc.want)
		})
	}
	s.Equal(10, s.stock(s.phone))
}

func (s *CartServiceSuite) TestUnknownProduct() {
	_, err := s.svc.AddToCart(s.ctx, s.user, uuid.NewString(), 1)
	s.ErrorIs(err, domain.ErrProductNotFound)

	_, err = s.svc.Stock(s.ctx, uuid.NewString())
	s.ErrorIs(err, domain.ErrProductNotFound)
}

func (s *CartServiceSuite) TestMetricsRecordOutcome() {
	_, _ = s.svc.AddToCart(s.ctx, s.user, s.cable, 5)
	_, _ = s.svc.AddToCart(s.ctx, s.user, s.cable, 1)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues(app.OpAddToCart, "insufficient_stock")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues(app.OpAddToCart, "ok")))
}

func (s *CartServiceSuite) TestConcurrentSessionsConserveStock() {
	const sessions = 40
	users := make([]string, sessions)
	for i := range users {
		users[i] = uuid.NewString()
	}

	g, ctx := errgroup.WithContext(s.ctx)
	for _, u := range users {
		g.Go(func() error {
			for range 3 {
				_, err := s.svc.AddToCart(ctx, u, s.phone, 1)
				if err != nil && !errors.Is(err, domain.ErrInsufficientStock) {
					return err
				}
				_, err = s.svc.RemoveFromCart(ctx, u, s.phone, 1)
				if err != nil && !errors.Is(err, domain.ErrLineNotFound) {
					return err
				}
				_, err = s.svc.AddToCart(ctx, u, s.phone, 1)
				if err != nil && !errors.Is(err, domain.ErrInsufficientStock) {
					return err
				}
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.Require().NoError(s.db.View(func(tx *memstore.Tx) error {
		p, _ := tx.Product(s.phone)
		s.GreaterOrEqual(p.Stock, 0)

		reserved := 0
		for _, l := range tx.AllLines() {
			s.Greater(l.Quantity, 0)
			if l.ProductID == s.phone {
				reserved += l.Quantity
			}
		}
		s.Equal(10, p.Stock+reserved)
		return nil
	}))
}

// failingCarts fails Merge after the ledger step has already run.
type failingCarts struct {
	app.CartStore
}

var errDiskFull = errors.New("disk full")

func (failingCarts) Merge(context.Context, domain.CartLine) (domain.CartLine, error) {
	return domain.CartLine{}, domain.Unavailable("merge line", errDiskFull)
}

type failingReleaseLedger struct {
	app.StockLedger
}

func (failingReleaseLedger) Release(context.Context, string, int) error {
	return domain.Unavailable("release", errDiskFull)
}

type faultyUoW struct {
	app.UnitOfWork
	wrap func(app.Stores) app.Stores
}

func (u faultyUoW) WithinTx(ctx context.Context, fn func(context.Context, app.Stores) error) error {
	return u.UnitOfWork.WithinTx(ctx, func(ctx context.Context, st app.Stores) error {
		return fn(ctx, u.wrap(st))
	})
}

func (s *CartServiceSuite) TestFailedMergeRollsBackReserve() {
	uow := faultyUoW{
		UnitOfWork: memory.NewUnitOfWork(s.db, ""),
		wrap: func(st app.Stores) app.Stores {
			st.Carts = failingCarts{CartStore: st.Carts}
			return st
		},
	}
	svc := app.NewService(uow)

	_, err := svc.AddToCart(s.ctx, s.user, s.phone, 4)
	s.ErrorIs(err, domain.ErrPersistenceUnavailable)
	s.ErrorIs(err, errDiskFull)
	s.Equal(10, s.stock(s.phone))
}

func (s *CartServiceSuite) TestFailedReleaseRestoresLine() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 4)
	s.Require().NoError(err)

	uow := faultyUoW{
		UnitOfWork: memory.NewUnitOfWork(s.db, ""),
		wrap: func(st app.Stores) app.Stores {
			st.Stock = failingReleaseLedger{StockLedger: st.Stock}
			return st
		},
	}
	_, err = app.NewService(uow).RemoveFromCart(s.ctx, s.user, s.phone, 2)
	s.ErrorIs(err, domain.ErrPersistenceUnavailable)

	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(view.Lines, 1)
	s.Equal(4, view.Lines[0].Quantity)
	s.Equal(6, s.stock(s.phone))
}

type failingEvents struct{}

func (failingEvents) CheckedOut(context.Context, domain.Receipt) error {
	return domain.Unavailable("record checkout", errDiskFull)
}

func (s *CartServiceSuite) TestFailedCheckoutKeepsCart() {
	_, err := s.svc.AddToCart(s.ctx, s.user, s.phone, 2)
	s.Require().NoError(err)

	uow := faultyUoW{
		UnitOfWork: memory.NewUnitOfWork(s.db, ""),
		wrap: func(st app.Stores) app.Stores {
			st.Events = failingEvents{}
			return st
		},
	}
	receipt, err := app.NewService(uow).Checkout(s.ctx, s.user)
	s.ErrorIs(err, domain.ErrPersistenceUnavailable)
	s.Zero(receipt)

	view, err := s.svc.ViewCart(s.ctx, s.user)
	s.Require().NoError(err)
	s.Len(view.Lines, 1)
}

func TestViewCartEmptyUsesConfiguredCurrency(t *testing.T) {
	svc := app.NewService(memory.NewUnitOfWork(memstore.New(), ""), app.WithCurrency("IDR"))

	view, err := svc.ViewCart(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.True(t, view.Empty())
	assert.Equal(t, domain.Money{Currency: "IDR"}, view.GrandTotal)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := app.NewService(memory.NewUnitOfWork(memstore.New(), ""))
	_, err := svc.AddToCart(ctx, uuid.NewString(), uuid.NewString(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
