package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"

	"github.com/dwikikusuma/minishop/pkg/grpcjson"
)

// Client calls CartService over an established connection using the JSON codec.
type Client struct {
	cc gogrpc.ClientConnInterface
}

func NewClient(cc gogrpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...gogrpc.CallOption) error {
	return grpcjson.Invoke(ctx, c.cc, ServiceName, method, in, out, opts...)
}

func (c *Client) AddToCart(ctx context.Context, in *AddToCartRequest, opts ...gogrpc.CallOption) (*Cart, error) {
	out := new(Cart)
	if err := c.invoke(ctx, "AddToCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemoveFromCart(ctx context.Context, in *RemoveFromCartRequest, opts ...gogrpc.CallOption) (*RemoveFromCartResponse, error) {
	out := new(RemoveFromCartResponse)
	if err := c.invoke(ctx, "RemoveFromCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ViewCart(ctx context.Context, in *UserRequest, opts ...gogrpc.CallOption) (*Cart, error) {
	out := new(Cart)
	if err := c.invoke(ctx, "ViewCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Checkout(ctx context.Context, in *UserRequest, opts ...gogrpc.CallOption) (*Receipt, error) {
	out := new(Receipt)
	if err := c.invoke(ctx, "Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStock(ctx context.Context, in *StockRequest, opts ...gogrpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	if err := c.invoke(ctx, "GetStock", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
