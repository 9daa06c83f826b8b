package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/app"
	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/repositories"
	"marketplace/internal/services"
	"marketplace/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	app        *fiber.App
	svc        *app.Services
	adminToken string
}

// setupApp builds the full app over an in-memory SQLite database with one
// admin account.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		StoreDriver:    "sqlite",
		JWTSecret:      "test_jwt_secret",
		JWTTTL:         time.Hour,
		BcryptCost:     bcrypt.MinCost,
		UploadDir:      t.TempDir(),
		UploadBaseURL:  "/uploads",
		UploadMaxBytes: 1 << 20,
	}

	db, err := repositories.OpenGORM("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	store := repositories.NewGORMStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	images, err := storage.NewLocalImageStore(cfg.UploadDir, cfg.UploadBaseURL)
	require.NoError(t, err)

	logger := zap.NewNop()
	svc := app.NewServices(cfg, store, images, nil, logger)
	fiberApp := app.New(cfg, svc, store.Ping, logger)

	_, err = svc.Users.Create(context.Background(), services.CreateUserInput{
		Email: "admin@example.com", Password: "admin123", FirstName: "Ada", LastName: "Admin", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	env := &testEnv{app: fiberApp, svc: svc}
	env.adminToken = env.login(t, "admin@example.com", "admin123")
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, map[string]json.RawMessage) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]json.RawMessage{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := e.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	return token
}

func (e *testEnv) createSeller(t *testing.T, email string) string {
	t.Helper()
	status, _ := e.do(t, "POST", "/api/v1/admin/users", e.adminToken, fiber.Map{
		"email": email, "password": "seller123", "first_name": "Sam", "last_name": "Seller", "role": "seller",
	})
	require.Equal(t, http.StatusCreated, status)
	return e.login(t, email, "seller123")
}

func (e *testEnv) registerCustomer(t *testing.T, email string) string {
	t.Helper()
	status, body := e.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"email": email, "password": "customer123", "first_name": "Cleo", "last_name": "Customer",
	})
	require.Equal(t, http.StatusCreated, status)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	return token
}

func (e *testEnv) createProduct(t *testing.T, sellerToken string, stock int) models.Product {
	t.Helper()
	status, body := e.do(t, "POST", "/api/v1/seller/products", sellerToken, fiber.Map{
		"name":     "Rice 25kg",
		"category": "groceries",
		"stock":    stock,
		"price_tiers": []fiber.Map{
			{"min_quantity": 1, "max_quantity": 9, "price": 80000},
			{"min_quantity": 10, "max_quantity": 49, "price": 70000},
			{"min_quantity": 50, "price": 60000},
		},
	})
	require.Equal(t, http.StatusCreated, status)
	var product models.Product
	require.NoError(t, json.Unmarshal(body["product"], &product))
	return product
}

func placeOrder(productID string, qty int) fiber.Map {
	return fiber.Map{
		"items":            []fiber.Map{{"product_id": productID, "quantity": qty}},
		"shipping_address": "1 Market Street",
		"phone":            "555-0100",
	}
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	status, body := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"healthy"`, string(body["status"]))
}

func TestAuthFlow(t *testing.T) {
	env := setupApp(t)
	token := env.registerCustomer(t, "cleo@example.com")

	status, body := env.do(t, "GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me models.User
	require.NoError(t, json.Unmarshal(body["user"], &me))
	assert.Equal(t, "cleo@example.com", me.Email)
	assert.Equal(t, models.RoleCustomer, me.Role)
	assert.NotContains(t, string(body["user"]), "password")

	status, _ = env.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"email": "CLEO@example.com", "password": "another123", "first_name": "C", "last_name": "C",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, "POST", "/api/v1/auth/register", "", fiber.Map{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body["errors"]), "email")

	status, _ = env.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "cleo@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, "GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, "POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestTieredOrderFlow(t *testing.T) {
	env := setupApp(t)
	sellerToken := env.createSeller(t, "seller@example.com")
	otherSeller := env.createSeller(t, "other@example.com")
	customerToken := env.registerCustomer(t, "cleo@example.com")
	product := env.createProduct(t, sellerToken, 100)

	status, body := env.do(t, "GET", "/api/v1/products?category=groceries&q=rice", "", nil)
	require.Equal(t, http.StatusOK, status)
	var catalog []models.ProductWithSeller
	require.NoError(t, json.Unmarshal(body["products"], &catalog))
	require.Len(t, catalog, 1)
	require.NotNil(t, catalog[0].Seller)
	assert.Equal(t, "Sam", catalog[0].Seller.FirstName)

	status, body = env.do(t, "POST", "/api/v1/orders", customerToken, placeOrder(product.ID, 10))
	require.Equal(t, http.StatusCreated, status, string(body["message"]))
	var order models.Order
	require.NoError(t, json.Unmarshal(body["order"], &order))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(700000)), order.TotalAmount.String())
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(70000)))
	assert.Equal(t, models.OrderStatusPending, order.Status)

	status, body = env.do(t, "GET", "/api/v1/products/"+product.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var fresh models.ProductWithSeller
	require.NoError(t, json.Unmarshal(body["product"], &fresh))
	assert.Equal(t, 90, fresh.Stock)

	status, _ = env.do(t, "POST", "/api/v1/orders", customerToken, placeOrder(product.ID, 1000))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, "GET", "/api/v1/orders/"+order.ID, otherSeller, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "PUT", "/api/v1/orders/"+order.ID+"/status", otherSeller, fiber.Map{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "PUT", "/api/v1/orders/"+order.ID+"/status", customerToken, fiber.Map{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "PUT", "/api/v1/orders/"+order.ID+"/status", sellerToken, fiber.Map{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, "PUT", "/api/v1/orders/"+order.ID+"/status", sellerToken, fiber.Map{"status": "confirmed"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body["order"], &order))
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	status, body = env.do(t, "GET", "/api/v1/orders", customerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "1", string(body["total"]))

	status, body = env.do(t, "GET", "/api/v1/seller/orders", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "1", string(body["total"]))

	status, body = env.do(t, "GET", "/api/v1/seller/stats", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var stats services.SellerStats
	require.NoError(t, json.Unmarshal(body["stats"], &stats))
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(700000)))
	assert.Equal(t, 1, stats.TotalOrders)
}

func TestRoleAndOwnershipGates(t *testing.T) {
	env := setupApp(t)
	sellerToken := env.createSeller(t, "seller@example.com")
	otherSeller := env.createSeller(t, "other@example.com")
	customerToken := env.registerCustomer(t, "cleo@example.com")
	product := env.createProduct(t, sellerToken, 5)

	status, _ := env.do(t, "GET", "/api/v1/seller/products", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "GET", "/api/v1/admin/users", sellerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "GET", "/api/v1/admin/stats", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, "PUT", "/api/v1/seller/products/"+product.ID, otherSeller, fiber.Map{"stock": 50})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, "DELETE", "/api/v1/seller/products/"+product.ID, otherSeller, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, "PUT", "/api/v1/seller/products/"+product.ID, sellerToken, fiber.Map{"stock": 50})
	require.Equal(t, http.StatusOK, status)
	var updated models.Product
	require.NoError(t, json.Unmarshal(body["product"], &updated))
	assert.Equal(t, 50, updated.Stock)
	assert.Len(t, updated.PriceTiers, 3)

	status, _ = env.do(t, "DELETE", "/api/v1/seller/products/"+product.ID, sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, "GET", "/api/v1/products/"+product.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, "POST", "/api/v1/orders", customerToken, placeOrder(product.ID, 1))
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, "GET", "/api/v1/admin/products", env.adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "1", string(body["total"]))
}

func TestAdminUserManagement(t *testing.T) {
	env := setupApp(t)
	customerToken := env.registerCustomer(t, "cleo@example.com")

	status, body := env.do(t, "GET", "/api/v1/admin/users", env.adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var users []models.User
	require.NoError(t, json.Unmarshal(body["users"], &users))
	require.Len(t, users, 2)

	var cleo models.User
	for _, u := range users {
		if u.Email == "cleo@example.com" {
			cleo = u
		}
	}
	require.NotEmpty(t, cleo.ID)

	status, _ = env.do(t, "PUT", "/api/v1/admin/users/"+cleo.ID, env.adminToken, fiber.Map{"email": "admin@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = env.do(t, "PUT", "/api/v1/admin/users/"+cleo.ID, env.adminToken, fiber.Map{"role": "client"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, "POST", "/api/v1/admin/users", env.adminToken, fiber.Map{
		"email": "cleo@example.com", "password": "secret123", "first_name": "X", "last_name": "Y", "role": "seller",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, "DELETE", "/api/v1/admin/users/"+cleo.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, "GET", "/api/v1/auth/me", customerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "cleo@example.com", "password": "customer123"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, "DELETE", "/api/v1/admin/users/missing", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSellerUpload(t *testing.T) {
	env := setupApp(t)
	sellerToken := env.createSeller(t, "seller@example.com")

	upload := func(content []byte) (int, map[string]json.RawMessage) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/v1/seller/uploads", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+sellerToken)
		return env.send(t, req)
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	status, body := upload(png)
	require.Equal(t, http.StatusCreated, status)
	var url string
	require.NoError(t, json.Unmarshal(body["url"], &url))
	assert.Regexp(t, `^/uploads/.+\.png$`, url)

	resp, err := env.app.Test(httptest.NewRequest("GET", url, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ = upload([]byte("plain text is not an image"))
	assert.Equal(t, http.StatusBadRequest, status)
}
