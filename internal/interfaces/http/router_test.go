package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/application/auth"
	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/feed"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
	"github.com/jhoicas/storeflow-api/internal/application/returns"
	"github.com/jhoicas/storeflow-api/internal/application/usecase"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/metrics"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/pdf"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/xlsx"
	apphttp "github.com/jhoicas/storeflow-api/internal/interfaces/http"
)

var outRef = regexp.MustCompile(`^\d{8}$`)

type apiFixture struct {
	app       *fiber.App
	store     *memory.Store
	projector *feed.Projector
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "WH01", Name: "Central"}))
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "WH02", Name: "Norte"}))

	bus := memory.NewBroadcaster()
	m := metrics.New()
	engine := ledger.NewEngine(s, s.Warehouses(), s.Movements(),
		ledger.WithLocation(time.UTC),
		ledger.WithRetry(ledger.RetryPolicy{BaseBackoff: time.Microsecond}),
		ledger.WithMetrics(m),
		ledger.WithPublishers(bus),
	)
	projector := feed.NewProjector(s.Movements(), bus, 20, nil)
	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go func() { _ = projector.Start(runCtx) }()
	select {
	case <-projector.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("el feed no quedó listo")
	}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      auth.NewAuthUseCase(s.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer}),
		ProductUC:   usecase.NewProductUseCase(s.Products(), s.Movements(), engine),
		WarehouseUC: usecase.NewWarehouseUseCase(s.Warehouses(), s.Movements()),
		UserUC:      usecase.NewUserUseCase(s.Users()),
		Engine:      engine,
		Projector:   projector,
		ReturnsUC:   returns.NewUseCase(s, s.Returns(), s.Products(), s.Warehouses(), engine, returns.Config{RestockOnApproval: true, DefaultWarehouse: "WH01"}, time.UTC, nil),
		ReportsUC:   reports.NewUseCase(s.Reports(), engine, pdf.NewMarotoPDFGenerator("Storeflow"), xlsx.NewMovementWriter(), time.UTC),
		Metrics:     m,
		Location:    time.UTC,
		ServiceName: "storeflow-test",
		JWTSecret:   testJWTSecret,
	})
	return &apiFixture{app: app, store: s, projector: projector}
}

func (f *apiFixture) call(t *testing.T, method, path, role string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (f *apiFixture) createProduct(t *testing.T, sku string, opening int64) dto.ProductResponse {
	t.Helper()
	resp, body := f.call(t, http.MethodPost, "/api/products", "admin", map[string]any{
		"sku": sku, "name": "Producto " + sku, "category": "general", "price": "2500",
		"min_stock": 3, "opening_stock": opening, "warehouse_id": "WH01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Code
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	resp, body := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestRegisterLoginYUsoDelToken(t *testing.T) {
	f := newAPI(t)
	resp, body := f.call(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "Ana@Tienda.co", "password": "secreta123", "name": "Ana", "role": "manager",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = f.call(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ana@tienda.co", "password": "secreta123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, body))

	resp, body = f.call(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ana@tienda.co", "password": "otra-clave",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = f.call(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ana@tienda.co", "password": "secreta123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, "manager", login.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/warehouses", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	res, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRutasProtegidasSinToken(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStockInOutTransfer(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-1", 0)

	resp, body := f.call(t, http.MethodPost, "/api/inventory/stock-in", "staff", map[string]any{
		"product_id": p.ID, "warehouse_id": "WH01", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var in dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &in))
	assert.True(t, strings.HasPrefix(in.ID, "IN-"))
	assert.Equal(t, int64(10), in.BalanceAfter)

	resp, body = f.call(t, http.MethodPost, "/api/inventory/stock-out", "staff", map[string]any{
		"product_id": p.ID, "warehouse_id": "WH01", "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Regexp(t, outRef, out.ID)
	assert.Equal(t, int64(6), out.BalanceAfter)

	resp, body = f.call(t, http.MethodPost, "/api/inventory/transfer", "staff", map[string]any{
		"product_id": p.ID, "from_warehouse_id": "WH01", "to_warehouse_id": "WH02", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tr dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.True(t, strings.HasPrefix(tr.ID, "TR-"))
	assert.Equal(t, int64(6), tr.BalanceAfter, "el traslado no cambia el saldo del producto")

	resp, body = f.call(t, http.MethodGet, "/api/products/"+p.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, int64(6), got.Quantity)

	resp, body = f.call(t, http.MethodGet, "/api/inventory/movements/"+out.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"type":"out"`)
}

func TestStockOut_SinSaldo_409(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-2", 3)

	resp, body := f.call(t, http.MethodPost, "/api/inventory/stock-out", "staff", map[string]any{
		"product_id": p.ID, "warehouse_id": "WH01", "quantity": 4,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, body))

	resp, body = f.call(t, http.MethodGet, "/api/products/"+p.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, int64(3), got.Quantity, "un rechazo no modifica el saldo")
}

func TestStockOut_CantidadNoEnteraEsValidacion(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-Q", 5)

	for _, qty := range []any{2.5, "5"} {
		resp, body := f.call(t, http.MethodPost, "/api/inventory/stock-out", "staff", map[string]any{
			"product_id": p.ID, "warehouse_id": "WH01", "quantity": qty,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		assert.Equal(t, "VALIDATION", errorCode(t, body), "quantity=%v", qty)
	}

	resp, body := f.call(t, http.MethodPost, "/api/inventory/stock-in", "staff", "no es un objeto")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", errorCode(t, body))

	resp, body = f.call(t, http.MethodGet, "/api/products/"+p.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, int64(5), got.Quantity)
}

func TestMovimientos_Validacion(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-3", 5)

	cases := []struct {
		name string
		path string
		body map[string]any
		want int
	}{
		{"cantidad cero", "/api/inventory/stock-in", map[string]any{"product_id": p.ID, "warehouse_id": "WH01", "quantity": 0}, http.StatusBadRequest},
		{"misma bodega", "/api/inventory/transfer", map[string]any{"product_id": p.ID, "from_warehouse_id": "WH01", "to_warehouse_id": "WH01", "quantity": 1}, http.StatusBadRequest},
		{"tipo inválido", "/api/inventory/movements", map[string]any{"type": "adjust", "product_id": p.ID, "warehouse_id": "WH01", "quantity": 1}, http.StatusBadRequest},
		{"return directo", "/api/inventory/movements", map[string]any{"type": "return", "product_id": p.ID, "warehouse_id": "WH01", "quantity": 1}, http.StatusBadRequest},
		{"producto inexistente", "/api/inventory/stock-in", map[string]any{"product_id": "nope", "warehouse_id": "WH01", "quantity": 1}, http.StatusNotFound},
		{"bodega inexistente", "/api/inventory/stock-in", map[string]any{"product_id": p.ID, "warehouse_id": "WH99", "quantity": 1}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.call(t, http.MethodPost, tc.path, "staff", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode, string(body))
		})
	}
}

func TestHistorial_Filtros(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-4", 10)
	resp, _ := f.call(t, http.MethodPost, "/api/inventory/movements", "staff", map[string]any{
		"type": "out", "product_id": p.ID, "warehouse_id": "WH01", "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.call(t, http.MethodGet, "/api/inventory/movements?type=out", "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.MovementListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "out", list.Items[0].Type)

	resp, body = f.call(t, http.MethodGet, "/api/inventory/movements?product_id="+p.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 2, "apertura + salida")

	resp, body = f.call(t, http.MethodGet, "/api/inventory/movements?from=2024-13-01", "staff", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestFeed_RecibeMovimientosConfirmados(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-5", 0)
	resp, _ := f.call(t, http.MethodPost, "/api/inventory/stock-in", "staff", map[string]any{
		"product_id": p.ID, "warehouse_id": "WH01", "quantity": 7,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp, body := f.call(t, http.MethodGet, "/api/inventory/feed", "staff", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var fr dto.FeedResponse
		if err := json.Unmarshal(body, &fr); err != nil {
			return false
		}
		return len(fr.Items) == 1 && fr.Items[0].Quantity == 7
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCatalogo_PermisosYBorrado(t *testing.T) {
	f := newAPI(t)

	resp, _ := f.call(t, http.MethodPost, "/api/products", "staff", map[string]any{"sku": "X", "name": "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	p := f.createProduct(t, "SKU-6", 2)
	resp, body := f.call(t, http.MethodDelete, "/api/products/"+p.ID, "admin", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "IN_USE", errorCode(t, body))

	resp, body = f.call(t, http.MethodPost, "/api/products", "admin", map[string]any{"sku": "sku-6", "name": "Otro"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, body))

	resp, body = f.call(t, http.MethodPost, "/api/warehouses", "manager", map[string]any{"name": "Sur"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var w dto.WarehouseResponse
	require.NoError(t, json.Unmarshal(body, &w))
	resp, _ = f.call(t, http.MethodDelete, "/api/warehouses/"+w.ID, "manager", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.call(t, http.MethodGet, "/api/products/inexistente", "staff", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDevoluciones_AprobarReingresa(t *testing.T) {
	f := newAPI(t)
	p := f.createProduct(t, "SKU-7", 5)

	resp, body := f.call(t, http.MethodPost, "/api/returns", "staff", map[string]any{
		"invoice_ref": "F-100", "product_id": p.ID, "quantity": 2, "reason": "damaged",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var ret dto.ReturnResponse
	require.NoError(t, json.Unmarshal(body, &ret))
	assert.Equal(t, "pending", ret.Status)

	resp, _ = f.call(t, http.MethodPost, "/api/returns/"+ret.ID+"/approve", "staff", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = f.call(t, http.MethodPost, "/api/returns/"+ret.ID+"/approve", "manager", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &ret))
	assert.Equal(t, "approved", ret.Status)
	assert.True(t, strings.HasPrefix(ret.MovementID, "RT-"))

	resp, body = f.call(t, http.MethodPost, "/api/returns/"+ret.ID+"/reject", "manager", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, body))

	resp, body = f.call(t, http.MethodGet, "/api/products/"+p.ID, "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, int64(7), got.Quantity)

	resp, body = f.call(t, http.MethodPost, "/api/returns", "staff", map[string]any{
		"invoice_ref": "F-101", "product_id": p.ID, "quantity": 1, "reason": "lost",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}

func TestReportes(t *testing.T) {
	f := newAPI(t)
	f.createProduct(t, "SKU-8", 1)

	resp, body := f.call(t, http.MethodGet, "/api/reports/dashboard", "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var d dto.DashboardSummaryDTO
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 1, d.TotalProducts)
	assert.Equal(t, 1, d.LowStockAlerts)
	assert.Len(t, d.Monthly, 6)

	resp, _ = f.call(t, http.MethodGet, "/api/reports/low-stock", "staff", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.call(t, http.MethodGet, "/api/reports/stock-by-warehouse", "staff", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.call(t, http.MethodGet, "/api/reports/returns-by-reason?status=bogus", "staff", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.call(t, http.MethodGet, "/api/reports/monthly-movements?from=2024-05&to=2024-01", "staff", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.call(t, http.MethodGet, "/api/reports/movements.xlsx", "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx es un zip")

	resp, body = f.call(t, http.MethodGet, "/api/reports/stock.pdf", "staff", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestUsuarios_SoloAdmin(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/users", "manager", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = f.call(t, http.MethodGet, "/api/users", "admin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.call(t, http.MethodGet, "/api/users/desconocido", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricas_ExponeContadores(t *testing.T) {
	f := newAPI(t)
	f.createProduct(t, "SKU-9", 4)

	resp, body := f.call(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "inventory_movements_total")
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `route="/api/products`)
}
