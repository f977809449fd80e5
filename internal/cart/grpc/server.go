package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dwikikusuma/minishop/internal/cart/app"
	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/pkg/grpcjson"
)

const ServiceName = "minishop.cart.v1.CartService"

type Server struct {
	svc *app.Service
}

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

// Register attaches the cart service to a gRPC server.
func Register(s gogrpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *Server) AddToCart(ctx context.Context, req *AddToCartRequest) (*Cart, error) {
	if err := checkIDs(req.UserID, req.ProductID); err != nil {
		return nil, err
	}
	if _, err := s.svc.AddToCart(ctx, req.UserID, req.ProductID, req.Quantity); err != nil {
		return nil, mapErr("error adding to cart", err)
	}

	view, err := s.svc.ViewCart(ctx, req.UserID)
	if err != nil {
		return nil, mapErr("error getting updated cart", err)
	}
	return toCart(view), nil
}

func (s *Server) RemoveFromCart(ctx context.Context, req *RemoveFromCartRequest) (*RemoveFromCartResponse, error) {
	if err := checkIDs(req.UserID, req.ProductID); err != nil {
		return nil, err
	}
	removed, err := s.svc.RemoveFromCart(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, mapErr("error removing from cart", err)
	}
	return &RemoveFromCartResponse{Removed: removed}, nil
}

func (s *Server) ViewCart(ctx context.Context, req *UserRequest) (*Cart, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	view, err := s.svc.ViewCart(ctx, req.UserID)
	if err != nil {
		return nil, mapErr("error getting cart", err)
	}
	return toCart(view), nil
}

func (s *Server) Checkout(ctx context.Context, req *UserRequest) (*Receipt, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	receipt, err := s.svc.Checkout(ctx, req.UserID)
	if err != nil {
		return nil, mapErr("error checking out", err)
	}
	return toReceipt(receipt), nil
}

func (s *Server) GetStock(ctx context.Context, req *StockRequest) (*StockResponse, error) {
	if err := checkProduct(req.ProductID); err != nil {
		return nil, err
	}
	n, err := s.svc.Stock(ctx, req.ProductID)
	if err != nil {
		return nil, mapErr("error getting stock", err)
	}
	return &StockResponse{ProductID: req.ProductID, Available: n}, nil
}

func checkUser(userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid user_id %q", userID)
	}
	return nil
}

func checkProduct(productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid product_id %q", productID)
	}
	return nil
}

func checkIDs(userID, productID string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	return checkProduct(productID)
}

func mapErr(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidUser):
		return status.Errorf(codes.InvalidArgument, "%s: %v", msg, err)
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrLineNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", msg, err)
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCurrencyMismatch):
		return status.Errorf(codes.FailedPrecondition, "%s: %v", msg, err)
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return status.Errorf(codes.Unavailable, "%s: %v", msg, err)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s: %v", msg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: %v", msg, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}

type cartServer interface {
	AddToCart(context.Context, *AddToCartRequest) (*Cart, error)
	RemoveFromCart(context.Context, *RemoveFromCartRequest) (*RemoveFromCartResponse, error)
	ViewCart(context.Context, *UserRequest) (*Cart, error)
	Checkout(context.Context, *UserRequest) (*Receipt, error)
	GetStock(context.Context, *StockRequest) (*StockResponse, error)
}

var ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*cartServer)(nil),
	Methods: []gogrpc.MethodDesc{
		grpcjson.Unary(ServiceName, "AddToCart", cartServer.AddToCart),
		grpcjson.Unary(ServiceName, "RemoveFromCart", cartServer.RemoveFromCart),
		grpcjson.Unary(ServiceName, "ViewCart", cartServer.ViewCart),
		grpcjson.Unary(ServiceName, "Checkout", cartServer.Checkout),
		grpcjson.Unary(ServiceName, "GetStock", cartServer.GetStock),
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "minishop/cart/v1/cart.json",
}
