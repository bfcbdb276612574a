package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/payment"
	"github.com/yourorg/tillpoint/internal/repository"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/security/auth"
	"github.com/yourorg/tillpoint/internal/security/middleware"
	"github.com/yourorg/tillpoint/internal/security/ratelimit"
	"github.com/yourorg/tillpoint/internal/service"
)

// testServer wires the full API over memory repositories, the way the server
// binary does, with a zero-delay payment simulator.
type testServer struct {
	*httptest.Server
	inventory *service.InventoryService
	sales     *service.SalesService
	checkouts *service.CheckoutService
	limiter   *ratelimit.Limiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	productRepo := repository.NewMemoryProductRepository()
	saleRepo := repository.NewMemorySaleRepository()
	staffRepo := repository.NewMemoryStaffRepository()
	pendingRepo := repository.NewMemoryPendingPaymentRepository()

	inventory := service.NewInventoryService(productRepo, nil, nil)
	sales := service.NewSalesService(saleRepo, staffRepo, inventory, nil)
	tokenManager := auth.NewTokenManager("test-secret", "tillpoint-test")
	authService := service.NewAuthService(staffRepo, tokenManager, nil)
	checkouts := service.NewCheckoutService(inventory, sales, pendingRepo, nil, nil, time.Minute, nil)

	gateway := payment.NewSimulator(0, nil, nil)
	gateway.SetConfirmHandler(func(c payment.Confirmation) {
		checkouts.Confirm(context.Background(), c.CheckoutID, c.PaymentRef)
	})
	checkouts.SetGateway(gateway)

	if _, err := authService.Register("admin", "AdminPass123", domain.RoleAdmin); err != nil {
		t.Fatalf("seeding admin failed: %v", err)
	}
	if _, err := authService.Register("jane", "CashierPass1", domain.RoleCashier); err != nil {
		t.Fatalf("seeding cashier failed: %v", err)
	}

	authz := security.NewAuthorizationService(nil)
	limiter := ratelimit.NewLimiter(5, time.Minute)

	mux := http.NewServeMux()
	mux.Handle("POST /api/login", NewLoginHandler(authService, limiter, nil))
	products := NewProductsHandler(inventory, authz, nil)
	mux.Handle("GET /api/products", products)
	mux.Handle("POST /api/products", products)
	mux.Handle("GET /api/products/low-stock", NewLowStockHandler(inventory, authz))
	detail := NewProductDetailHandler(inventory, authz, nil)
	mux.Handle("GET /api/products/{id}", detail)
	mux.Handle("PUT /api/products/{id}", detail)
	mux.Handle("DELETE /api/products/{id}", detail)
	mux.Handle("GET /api/categories", NewCategoriesHandler())
	mux.Handle("POST /api/checkouts", NewCheckoutHandler(checkouts, authz, nil))
	mux.Handle("GET /api/checkouts/{id}", NewCheckoutStatusHandler(checkouts, authz))
	mux.Handle("POST /api/checkouts/{id}/confirm", NewCheckoutConfirmHandler(checkouts, authz, nil))
	mux.Handle("GET /api/sales", NewSalesHandler(sales, authz, nil))
	mux.Handle("GET /api/sales/{id}", NewSaleDetailHandler(sales, authz))
	mux.Handle("GET /api/reports/best-sellers", NewBestSellersHandler(sales, authz))
	mux.Handle("GET /api/reports/dashboard", NewDashboardHandler(sales, authz))
	mux.Handle("GET /api/reports/daily", NewDailyReportHandler(sales, authz))
	staff := NewStaffHandler(staffRepo, authService, authz, nil)
	mux.Handle("GET /api/staff", staff)
	mux.Handle("POST /api/staff", staff)
	staffDetail := NewStaffDetailHandler(staffRepo, authz, nil)
	mux.Handle("GET /api/staff/{id}", staffDetail)
	mux.Handle("DELETE /api/staff/{id}", staffDetail)
	mux.Handle("GET /api/export", NewExportHandler(productRepo, saleRepo, staffRepo, authz, nil))

	root := middleware.JWTMiddleware(tokenManager, nil)(mux)

	ts := &testServer{
		Server:    httptest.NewServer(root),
		inventory: inventory,
		sales:     sales,
		checkouts: checkouts,
		limiter:   limiter,
	}
	t.Cleanup(func() {
		ts.Close()
		limiter.Stop()
	})
	return ts
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := ts.request(t, "POST", "/api/login", "", map[string]string{
		"username": username, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, status, body)
	}
	var result struct {
		Token string `json:"token"`
	}
	json.Unmarshal(body, &result)
	return result.Token
}

func (ts *testServer) request(t *testing.T, method, path, token string, payload interface{}) (int, []byte) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encoding payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, ts.URL+path, &body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp.StatusCode, out.Bytes()
}

func (ts *testServer) addProduct(t *testing.T, token, name string, price int64, stock int) string {
	t.Helper()
	status, body := ts.request(t, "POST", "/api/products", token, map[string]interface{}{
		"name": name, "brand": name, "category": "Beer", "size": "500ml",
		"price": fmt.Sprintf("%d", price), "stock": stock, "minStock": 1,
	})
	if status != http.StatusCreated {
		t.Fatalf("adding product failed: %d %s", status, body)
	}
	var product struct {
		ID string `json:"id"`
	}
	json.Unmarshal(body, &product)
	return product.ID
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t)

	token := ts.login(t, "admin", "AdminPass123")
	if token == "" {
		t.Fatalf("expected token")
	}

	status, _ := ts.request(t, "POST", "/api/login", "", map[string]string{
		"username": "admin", "password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", status)
	}
}

func TestLoginRateLimit(t *testing.T) {
	ts := newTestServer(t)

	var status int
	for i := 0; i < 6; i++ {
		status, _ = ts.request(t, "POST", "/api/login", "", map[string]string{
			"username": "ghost", "password": "wrong",
		})
	}
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", status)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.request(t, "GET", "/api/products", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status, _ = ts.request(t, "GET", "/api/products", "garbage-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
}

func TestProductCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")

	id := ts.addProduct(t, admin, "Tusker Lager", 200, 100)

	status, body := ts.request(t, "GET", "/api/products/"+id, admin, nil)
	if status != http.StatusOK {
		t.Fatalf("get product: %d %s", status, body)
	}

	status, body = ts.request(t, "PUT", "/api/products/"+id, admin, map[string]interface{}{"stock": 50})
	if status != http.StatusOK {
		t.Fatalf("update product: %d %s", status, body)
	}
	var updated struct {
		Stock int `json:"stock"`
	}
	json.Unmarshal(body, &updated)
	if updated.Stock != 50 {
		t.Fatalf("expected stock 50, got %d", updated.Stock)
	}

	status, _ = ts.request(t, "DELETE", "/api/products/"+id, admin, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete product: %d", status)
	}
	status, _ = ts.request(t, "GET", "/api/products/"+id, admin, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestCashierCannotManageProducts(t *testing.T) {
	ts := newTestServer(t)
	cashier := ts.login(t, "jane", "CashierPass1")

	status, _ := ts.request(t, "POST", "/api/products", cashier, map[string]interface{}{
		"name": "X", "brand": "X", "category": "Beer", "price": "100", "stock": 1,
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier create, got %d", status)
	}

	// Reading is allowed.
	status, _ = ts.request(t, "GET", "/api/products", cashier, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for cashier list, got %d", status)
	}
}

func TestCheckoutOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	cashier := ts.login(t, "jane", "CashierPass1")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 5)

	status, body := ts.request(t, "POST", "/api/checkouts", cashier, map[string]interface{}{
		"items":         []map[string]interface{}{{"productId": id, "quantity": 2}},
		"paymentMethod": "cash",
	})
	if status != http.StatusCreated {
		t.Fatalf("checkout failed: %d %s", status, body)
	}
	var sale struct {
		TotalAmount string `json:"totalAmount"`
		CashierName string `json:"cashierName"`
	}
	json.Unmarshal(body, &sale)
	if sale.TotalAmount != "400" {
		t.Fatalf("expected total 400, got %s", sale.TotalAmount)
	}
	if sale.CashierName != "jane" {
		t.Fatalf("expected cashier jane, got %s", sale.CashierName)
	}
}

func TestCheckoutInsufficientStockOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 1)

	status, body := ts.request(t, "POST", "/api/checkouts", admin, map[string]interface{}{
		"items":         []map[string]interface{}{{"productId": id, "quantity": 3}},
		"paymentMethod": "cash",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", status, body)
	}

	var conflict struct {
		ProductID string `json:"productId"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
	}
	json.Unmarshal(body, &conflict)
	if conflict.ProductID != id || conflict.Requested != 3 || conflict.Available != 1 {
		t.Fatalf("conflict body should name the product: %s", body)
	}

	// Stock unchanged.
	_, productBody := ts.request(t, "GET", "/api/products/"+id, admin, nil)
	var product struct {
		Stock int `json:"stock"`
	}
	json.Unmarshal(productBody, &product)
	if product.Stock != 1 {
		t.Fatalf("stock mutated on failed checkout: %d", product.Stock)
	}
}

func TestCheckoutRejectsNonPositiveQuantity(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 5)

	for _, quantity := range []int{0, -2} {
		status, body := ts.request(t, "POST", "/api/checkouts", admin, map[string]interface{}{
			"items":         []map[string]interface{}{{"productId": id, "quantity": quantity}},
			"paymentMethod": "cash",
		})
		if status != http.StatusBadRequest {
			t.Fatalf("quantity %d: expected 400, got %d %s", quantity, status, body)
		}
	}

	// Nothing sold, nothing deducted.
	_, productBody := ts.request(t, "GET", "/api/products/"+id, admin, nil)
	var product struct {
		Stock int `json:"stock"`
	}
	json.Unmarshal(productBody, &product)
	if product.Stock != 5 {
		t.Fatalf("stock mutated on rejected checkout: %d", product.Stock)
	}

	status, body := ts.request(t, "GET", "/api/sales", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("listing sales failed: %d", status)
	}
	var sales []json.RawMessage
	json.Unmarshal(body, &sales)
	if len(sales) != 0 {
		t.Fatalf("rejected checkout recorded a sale: %s", body)
	}
}

func TestMobileMoneyCheckoutOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 5)

	// Zero-delay simulator confirms before the handler responds.
	status, body := ts.request(t, "POST", "/api/checkouts", admin, map[string]interface{}{
		"items":         []map[string]interface{}{{"productId": id, "quantity": 1}},
		"paymentMethod": "mobile_money",
		"phone":         "254700000001",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for synchronously confirmed checkout, got %d %s", status, body)
	}
	var sale struct {
		ID            string `json:"id"`
		TotalAmount   string `json:"totalAmount"`
		PaymentMethod string `json:"paymentMethod"`
		PaymentRef    string `json:"paymentRef"`
	}
	json.Unmarshal(body, &sale)
	if sale.ID == "" || sale.PaymentRef == "" {
		t.Fatalf("expected a recorded sale with a payment reference, got %s", body)
	}
	if sale.PaymentMethod != "mobile_money" || sale.TotalAmount != "200" {
		t.Fatalf("unexpected sale body: %s", body)
	}
}

func TestSalesVisibilityPerRole(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	cashier := ts.login(t, "jane", "CashierPass1")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 10)

	for _, token := range []string{admin, cashier} {
		status, body := ts.request(t, "POST", "/api/checkouts", token, map[string]interface{}{
			"items":         []map[string]interface{}{{"productId": id, "quantity": 1}},
			"paymentMethod": "cash",
		})
		if status != http.StatusCreated {
			t.Fatalf("checkout failed: %d %s", status, body)
		}
	}

	// Admin sees both sales.
	_, body := ts.request(t, "GET", "/api/sales", admin, nil)
	var all []map[string]interface{}
	json.Unmarshal(body, &all)
	if len(all) != 2 {
		t.Fatalf("admin should see 2 sales, got %d", len(all))
	}

	// The cashier only their own.
	_, body = ts.request(t, "GET", "/api/sales", cashier, nil)
	var own []map[string]interface{}
	json.Unmarshal(body, &own)
	if len(own) != 1 {
		t.Fatalf("cashier should see 1 sale, got %d", len(own))
	}
	if own[0]["cashierName"] != "jane" {
		t.Fatalf("cashier saw someone else's sale: %v", own[0])
	}
}

func TestReportsRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)
	cashier := ts.login(t, "jane", "CashierPass1")

	for _, path := range []string{
		"/api/reports/best-sellers",
		"/api/reports/dashboard",
		"/api/reports/daily",
		"/api/export",
	} {
		status, _ := ts.request(t, "GET", path, cashier, nil)
		if status != http.StatusForbidden {
			t.Errorf("%s: expected 403 for cashier, got %d", path, status)
		}
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	id := ts.addProduct(t, admin, "Tusker Lager", 200, 10)

	ts.request(t, "POST", "/api/checkouts", admin, map[string]interface{}{
		"items":         []map[string]interface{}{{"productId": id, "quantity": 2}},
		"paymentMethod": "card",
	})

	status, body := ts.request(t, "GET", "/api/reports/dashboard", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", status, body)
	}
	var stats struct {
		TotalRevenue string `json:"totalRevenue"`
		SaleCount    int    `json:"saleCount"`
		StaffCount   int    `json:"staffCount"`
	}
	json.Unmarshal(body, &stats)
	if stats.TotalRevenue != "400" || stats.SaleCount != 1 {
		t.Fatalf("wrong dashboard figures: %s", body)
	}
	if stats.StaffCount != 2 {
		t.Fatalf("expected 2 staff, got %d", stats.StaffCount)
	}
}

func TestStaffManagement(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	cashier := ts.login(t, "jane", "CashierPass1")

	status, _ := ts.request(t, "GET", "/api/staff", cashier, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", status)
	}

	status, body := ts.request(t, "POST", "/api/staff", admin, map[string]string{
		"username": "pete", "password": "PetePass123", "role": "cashier",
	})
	if status != http.StatusCreated {
		t.Fatalf("staff create failed: %d %s", status, body)
	}
	if bytes.Contains(body, []byte("PetePass123")) || bytes.Contains(body, []byte("passwordHash")) {
		t.Fatalf("response leaked credentials: %s", body)
	}

	// The new member can log in.
	ts.login(t, "pete", "PetePass123")
}

func TestCategoriesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	cashier := ts.login(t, "jane", "CashierPass1")

	status, body := ts.request(t, "GET", "/api/categories", cashier, nil)
	if status != http.StatusOK {
		t.Fatalf("categories failed: %d", status)
	}
	var categories []string
	json.Unmarshal(body, &categories)
	if len(categories) != len(domain.Categories) {
		t.Fatalf("expected %d categories, got %d", len(domain.Categories), len(categories))
	}
}

func TestExportBundle(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "AdminPass123")
	ts.addProduct(t, admin, "Tusker Lager", 200, 10)

	status, body := ts.request(t, "GET", "/api/export", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("export failed: %d %s", status, body)
	}
	var bundle struct {
		Products []interface{} `json:"products"`
		Sales    []interface{} `json:"sales"`
		Users    []interface{} `json:"users"`
	}
	if err := json.Unmarshal(body, &bundle); err != nil {
		t.Fatalf("bundle not parseable: %v", err)
	}
	if len(bundle.Products) != 1 || len(bundle.Users) != 2 {
		t.Fatalf("wrong bundle contents: %s", body)
	}
	if bytes.Contains(body, []byte("passwordHash")) {
		t.Fatalf("export leaked password hashes")
	}
}
