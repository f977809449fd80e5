package grpc

import (
	"context"
	"errors"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dwikikusuma/minishop/internal/catalog/app"
	"github.com/dwikikusuma/minishop/internal/catalog/domain"
	"github.com/dwikikusuma/minishop/pkg/grpcjson"
)

const ServiceName = "minishop.catalog.v1.CatalogService"

type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         Money  `json:"price"`
	Stock         int    `json:"stock"`
	CreatedAtUnix int64  `json:"created_at_unix"`
	UpdatedAtUnix int64  `json:"updated_at_unix"`
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       *Money `json:"price"`
	Stock       int    `json:"stock"`
}

type GetProductRequest struct {
	ID string `json:"id"`
}

type ListProductsRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

type ListProductsResponse struct {
	Products   []Product `json:"products"`
	NextCursor string    `json:"next_cursor"`
}

type Server struct {
	svc *app.Service
}

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

func Register(s gogrpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *Server) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	if req == nil || req.Price == nil {
		return nil, status.Error(codes.InvalidArgument, "missing body/price")
	}
	product, err := s.svc.CreateProduct(ctx, req.Name, req.Description, req.Price.Currency, req.Price.Amount, req.Stock)
	if err != nil {
		return nil, mapErr(err)
	}
	return toWire(product), nil
}

func (s *Server) GetProduct(ctx context.Context, req *GetProductRequest) (*Product, error) {
	p, err := s.svc.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return toWire(p), nil
}

func (s *Server) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	products, next, err := s.svc.ListProducts(ctx, req.Query, req.Limit, req.Cursor)
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, *toWire(p))
	}

	return &ListProductsResponse{Products: out, NextCursor: next}, nil
}

func toWire(p domain.Product) *Product {
	return &Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price: Money{
			Currency: p.Price.Currency,
			Amount:   p.Price.Amount,
		},
		Stock:         p.Stock,
		CreatedAtUnix: p.CreatedAt.Unix(),
		UpdatedAtUnix: p.UpdatedAt.Unix(),
	}
}

func mapErr(err error) error {
	if errors.Is(err, app.ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if errors.Is(err, app.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

type catalogServer interface {
	CreateProduct(context.Context, *CreateProductRequest) (*Product, error)
	GetProduct(context.Context, *GetProductRequest) (*Product, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

var ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*catalogServer)(nil),
	Methods: []gogrpc.MethodDesc{
		grpcjson.Unary(ServiceName, "CreateProduct", catalogServer.CreateProduct),
		grpcjson.Unary(ServiceName, "GetProduct", catalogServer.GetProduct),
		grpcjson.Unary(ServiceName, "ListProducts", catalogServer.ListProducts),
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "minishop/catalog/v1/catalog.json",
}
