package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	cartapp "github.com/dwikikusuma/minishop/internal/cart/app"
	cartgrpc "github.com/dwikikusuma/minishop/internal/cart/grpc"
	cartmem "github.com/dwikikusuma/minishop/internal/cart/infra/memory"
	"github.com/dwikikusuma/minishop/internal/memstore"
)

var gateway *echo.Echo

// upstream is swapped per test; the echo instance (and its prometheus middleware)
// is built once per process.
var upstream = &switchable{}

type switchable struct{ cartAPI }

func TestMain(m *testing.M) {
	gateway = newServer(upstream, func() bool { return true }, zap.NewNop())
	m.Run()
}

func startUpstream(t *testing.T) string {
	t.Helper()

	db := memstore.New()
	productID := uuid.NewString()
	require.NoError(t, db.Update(func(tx *memstore.Tx) error {
		return tx.PutProduct(memstore.Product{ID: productID, Name: "Phone", PriceAmount: 1000, Currency: "USD", Stock: 3})
	}))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	cartgrpc.Register(srv, cartgrpc.NewServer(cartapp.NewService(cartmem.NewUnitOfWork(db, ""))))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	upstream.cartAPI = cartgrpc.NewClient(conn)
	return productID
}

func do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCartFlowOverHTTP(t *testing.T) {
	productID := startUpstream(t)
	user := uuid.NewString()
	base := "/api/carts/" + user

	rec := do(t, http.MethodPost, base+"/items", `{"product_id":"`+productID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decode[cartgrpc.Cart](t, rec)
	assert.Equal(t, int64(2000), cart.GrandTotal.Amount)

	rec = do(t, http.MethodPost, base+"/items", `{"product_id":"`+productID+`","quantity":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "FAILED_PRECONDITION", decode[errorBody](t, rec).Code)

	rec = do(t, http.MethodGet, "/api/stock/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[cartgrpc.StockResponse](t, rec).Available)

	rec = do(t, http.MethodDelete, base+"/items/"+productID+"?quantity=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[cartgrpc.RemoveFromCartResponse](t, rec).Removed)

	rec = do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1000), decode[cartgrpc.Receipt](t, rec).Total.Amount)

	rec = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartgrpc.Cart](t, rec).Lines)

	rec = do(t, http.MethodPost, base+"/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBadRequests(t *testing.T) {
	productID := startUpstream(t)
	user := uuid.NewString()

	rec := do(t, http.MethodPost, "/api/carts/not-a-uuid/items", `{"product_id":"`+productID+`","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.MethodPost, "/api/carts/"+user+"/items", `{"product_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.MethodDelete, "/api/carts/"+user+"/items/"+productID+"?quantity=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.MethodDelete, "/api/carts/"+user+"/items/"+productID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, http.MethodGet, "/api/stock/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
