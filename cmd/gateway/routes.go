package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartgrpc "github.com/dwikikusuma/minishop/internal/cart/grpc"
)

type cartAPI interface {
	AddToCart(ctx context.Context, in *cartgrpc.AddToCartRequest, opts ...gogrpc.CallOption) (*cartgrpc.Cart, error)
	RemoveFromCart(ctx context.Context, in *cartgrpc.RemoveFromCartRequest, opts ...gogrpc.CallOption) (*cartgrpc.RemoveFromCartResponse, error)
	ViewCart(ctx context.Context, in *cartgrpc.UserRequest, opts ...gogrpc.CallOption) (*cartgrpc.Cart, error)
	Checkout(ctx context.Context, in *cartgrpc.UserRequest, opts ...gogrpc.CallOption) (*cartgrpc.Receipt, error)
	GetStock(ctx context.Context, in *cartgrpc.StockRequest, opts ...gogrpc.CallOption) (*cartgrpc.StockResponse, error)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type addItemBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type handlers struct {
	cart cartAPI
	log  *zap.Logger
}

func registerRoutes(e *echo.Echo, cart cartAPI, log *zap.Logger) {
	h := handlers{cart: cart, log: log}

	api := e.Group("/api")
	api.GET("/carts/:user", h.viewCart)
	api.POST("/carts/:user/items", h.addItem)
	api.DELETE("/carts/:user/items/:product", h.removeItem)
	api.POST("/carts/:user/checkout", h.checkout)
	api.GET("/stock/:product", h.stock)
}

func (h handlers) viewCart(c echo.Context) error {
	out, err := h.cart.ViewCart(c.Request().Context(), &cartgrpc.UserRequest{UserID: c.Param("user")})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h handlers) addItem(c echo.Context) error {
	var body addItemBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: "malformed body"})
	}
	out, err := h.cart.AddToCart(c.Request().Context(), &cartgrpc.AddToCartRequest{
		UserID:    c.Param("user"),
		ProductID: body.ProductID,
		Quantity:  body.Quantity,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// removeItem takes the quantity from ?quantity=; it defaults to 1.
func (h handlers) removeItem(c echo.Context) error {
	qty := 1
	if raw := c.QueryParam("quantity"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: "quantity must be a number"})
		}
		qty = v
	}
	out, err := h.cart.RemoveFromCart(c.Request().Context(), &cartgrpc.RemoveFromCartRequest{
		UserID:    c.Param("user"),
		ProductID: c.Param("product"),
		Quantity:  qty,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h handlers) checkout(c echo.Context) error {
	out, err := h.cart.Checkout(c.Request().Context(), &cartgrpc.UserRequest{UserID: c.Param("user")})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h handlers) stock(c echo.Context) error {
	out, err := h.cart.GetStock(c.Request().Context(), &cartgrpc.StockRequest{ProductID: c.Param("product")})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h handlers) fail(c echo.Context, err error) error {
	code, name, msg := httpStatusFromGRPC(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("upstream call failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(code, errorBody{Code: name, Message: msg})
}

func httpStatusFromGRPC(err error) (int, string, string) {
	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", st.Message()
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", st.Message()
	case codes.FailedPrecondition:
		return http.StatusConflict, "FAILED_PRECONDITION", st.Message()
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable, "UNAVAILABLE", st.Message()
	case codes.Canceled:
		return http.StatusRequestTimeout, "CANCELED", st.Message()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
