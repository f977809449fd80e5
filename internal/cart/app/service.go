package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/pkg/metrics"
)

const (
	OpAddToCart      = "add_to_cart"
	OpRemoveFromCart = "remove_from_cart"
	OpViewCart       = "view_cart"
	OpCheckout       = "checkout"
	OpStock          = "stock"
)

type Service struct {
	uow      UnitOfWork
	log      *zap.Logger
	metrics  *metrics.CartMetrics
	tracer   trace.Tracer
	now      func() time.Time
	currency string
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCurrency sets the currency reported for an empty cart's total.
func WithCurrency(c string) Option {
	return func(s *Service) { s.currency = c }
}

func NewService(uow UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:      uow,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("github.com/dwikikusuma/minishop/internal/cart"),
		now:      time.Now,
		currency: "USD",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddToCart reserves qty units of the product and merges them into the user's cart
// within one unit of work. On any failure neither stock nor cart changes. A cart holds
// one currency; a product priced in another is rejected with ErrCurrencyMismatch.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, qty int) (line domain.CartLine, err error) {
	ctx, done := s.start(ctx, OpAddToCart, userID, productID, qty)
	defer func() { done(err) }()

	if err := validate(userID, qty); err != nil {
		return domain.CartLine{}, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		res, err := st.Stock.Reserve(ctx, productID, qty)
		if err != nil {
			return err
		}

		existing, err := st.Carts.List(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) > 0 && existing[0].UnitPrice.Currency != res.UnitPrice.Currency {
			return fmt.Errorf("%w: cart is %s, product is %s",
				domain.ErrCurrencyMismatch, existing[0].UnitPrice.Currency, res.UnitPrice.Currency)
		}

		line, err = st.Carts.Merge(ctx, domain.CartLine{
			UserID:      userID,
			ProductID:   productID,
			ProductName: res.ProductName,
			Quantity:    qty,
			UnitPrice:   res.UnitPrice,
		})
		return err
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

// RemoveFromCart takes up to qty units off the user's line and returns exactly the
// removed amount to stock. It reports how many units were removed.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string, qty int) (removed int, err error) {
	ctx, done := s.start(ctx, OpRemoveFromCart, userID, productID, qty)
	defer func() { done(err) }()

	if err := validate(userID, qty); err != nil {
		return 0, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		n, err := st.Carts.Decrement(ctx, userID, productID, qty)
		if err != nil {
			return err
		}
		if err := st.Stock.Release(ctx, productID, n); err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Service) ViewCart(ctx context.Context, userID string) (view domain.CartView, err error) {
	ctx, done := s.start(ctx, OpViewCart, userID, "", 0)
	defer func() { done(err) }()

	if strings.TrimSpace(userID) == "" {
		return domain.CartView{}, domain.ErrInvalidUser
	}

	var lines []domain.CartLine
	err = s.uow.Read(ctx, func(ctx context.Context, st Stores) error {
		var err error
		lines, err = st.Carts.List(ctx, userID)
		return err
	})
	if err != nil {
		return domain.CartView{}, err
	}

	viewLines, total := domain.Summarize(lines, s.currency)
	return domain.CartView{UserID: userID, Lines: viewLines, GrandTotal: total}, nil
}

// Checkout clears the cart and totals the cleared lines in one unit of work. Stock is
// left as is: the reservation made at add time becomes the sale.
func (s *Service) Checkout(ctx context.Context, userID string) (receipt domain.Receipt, err error) {
	ctx, done := s.start(ctx, OpCheckout, userID, "", 0)
	defer func() { done(err) }()

	if strings.TrimSpace(userID) == "" {
		return domain.Receipt{}, domain.ErrInvalidUser
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, st Stores) error {
		lines, err := st.Carts.Clear(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		viewLines, total := domain.Summarize(lines, s.currency)
		receipt = domain.Receipt{
			ID:           uuid.NewString(),
			UserID:       userID,
			Lines:        viewLines,
			Total:        total,
			CheckedOutAt: s.now().UTC(),
		}
		return st.Events.CheckedOut(ctx, receipt)
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return receipt, nil
}

// Stock reports the available quantity of a product.
func (s *Service) Stock(ctx context.Context, productID string) (available int, err error) {
	ctx, done := s.start(ctx, OpStock, "", productID, 0)
	defer func() { done(err) }()

	err = s.uow.Read(ctx, func(ctx context.Context, st Stores) error {
		var err error
		available, err = st.Stock.Query(ctx, productID)
		return err
	})
	return available, err
}

func validate(userID string, qty int) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (s *Service) start(ctx context.Context, op, userID, productID string, qty int) (context.Context, func(error)) {
	started := time.Now()

	attrs := []attribute.KeyValue{attribute.String("cart.op", op)}
	fields := []zap.Field{zap.String("op", op)}
	if userID != "" {
		attrs = append(attrs, attribute.String("user.id", userID))
		fields = append(fields, zap.String("user_id", userID))
	}
	if productID != "" {
		attrs = append(attrs, attribute.String("product.id", productID))
		fields = append(fields, zap.String("product_id", productID))
	}
	if qty != 0 {
		attrs = append(attrs, attribute.Int("cart.qty", qty))
		fields = append(fields, zap.Int("qty", qty))
	}

	ctx, span := s.tracer.Start(ctx, "cart."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := domain.Kind(err)
		s.metrics.Observe(op, outcome, started)

		fields = append(fields, zap.String("outcome", outcome), zap.Duration("took", time.Since(started)))
		switch outcome {
		case "ok":
			span.SetStatus(codes.Ok, "")
			s.log.Debug("cart operation", fields...)
		case "internal", "persistence_unavailable":
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Error("cart operation failed", append(fields, zap.Error(err))...)
		default:
			span.SetStatus(codes.Error, outcome)
			s.log.Info("cart operation rejected", append(fields, zap.Error(err))...)
		}
		span.End()
	}
}
