// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/router"
	"github.com/javajoker/fifo-inventory/internal/simulator"
	"github.com/javajoker/fifo-inventory/internal/store"
)

const (
	operatorUsername = "operator"
	operatorPassword = "s3cret-pass"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func testConfig(authEnabled bool) *config.Config {
	return &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			Enabled:   authEnabled,
			Username:  operatorUsername,
			Password:  operatorPassword,
			JWTSecret: "test-secret",
			TokenTTL:  1,
		},
		AWS:       config.AWSConfig{ReportPrefix: "reports"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		I18n:      config.I18nConfig{DefaultLocale: "en"},
		Simulator: config.SimulatorConfig{ProductIDs: simulator.DefaultProducts},
	}
}

func newRouter(t *testing.T, authEnabled bool) (*gin.Engine, *inventory.Engine) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine, err := inventory.NewEngine(context.Background(), store.NewMemoryStore(), inventory.WithLogger(logger))
	require.NoError(t, err)

	r, err := router.Initialize(testConfig(authEnabled), router.Dependencies{
		Engine: engine,
		Logger: logger,
	})
	require.NoError(t, err)
	return r, engine
}

func doRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = strings.NewReader(raw)
		} else {
			jsonData, _ := json.Marshal(body)
			reader = bytes.NewBuffer(jsonData)
		}
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func purchaseBody(productID string, quantity int, price float64) map[string]interface{} {
	return map[string]interface{}{
		"product_id": productID,
		"event_type": "purchase",
		"quantity":   quantity,
		"unit_price": price,
	}
}

func saleBody(productID string, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"product_id": productID,
		"event_type": "sale",
		"quantity":   quantity,
	}
}

type APITestSuite struct {
	suite.Suite
	router *gin.Engine
	engine *inventory.Engine
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize("en", ""))
}

func (suite *APITestSuite) SetupTest() {
	suite.router, suite.engine = newRouter(suite.T(), false)
}

func (suite *APITestSuite) apply(body interface{}) *httptest.ResponseRecorder {
	return doRequest(suite.router, http.MethodPost, "/v1/events", body, "")
}

func (suite *APITestSuite) TestFIFOCostOfSale() {
	t := suite.T()

	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 100, 80)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 100, 90)).Code)

	w := suite.apply(saleBody("PRD001", 150))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Transaction struct {
			EventType    string `json:"event_type"`
			TotalCost    string `json:"total_cost"`
			Consumptions []struct {
				Quantity int64  `json:"quantity"`
				Cost     string `json:"cost"`
			} `json:"consumptions"`
		} `json:"transaction"`
		Product struct {
			CurrentQuantity int64  `json:"current_quantity"`
			TotalCost       string `json:"total_cost"`
			AverageCost     string `json:"average_cost"`
		} `json:"product"`
	}
	resp := decode(t, w)
	assert.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	assert.Equal(t, "sale", data.Transaction.EventType)
	assert.Equal(t, "12500.00", data.Transaction.TotalCost)
	require.Len(t, data.Transaction.Consumptions, 2)
	assert.Equal(t, int64(100), data.Transaction.Consumptions[0].Quantity)
	assert.Equal(t, "8000.00", data.Transaction.Consumptions[0].Cost)
	assert.Equal(t, int64(50), data.Transaction.Consumptions[1].Quantity)
	assert.Equal(t, "4500.00", data.Transaction.Consumptions[1].Cost)

	assert.Equal(t, int64(50), data.Product.CurrentQuantity)
	assert.Equal(t, "4500.00", data.Product.TotalCost)
	assert.Equal(t, "90.00", data.Product.AverageCost)
}

func (suite *APITestSuite) TestEventErrorMapping() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(map[string]interface{}{
		"event_id":   "evt-1",
		"product_id": "PRD001",
		"event_type": "purchase",
		"quantity":   10,
		"unit_price": 50,
	}).Code)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"zero quantity", purchaseBody("PRD001", 0, 10), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing price", map[string]interface{}{"product_id": "PRD001", "event_type": "purchase", "quantity": 5}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown type", map[string]interface{}{"product_id": "PRD001", "event_type": "return", "quantity": 5}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", `{"product_id": "PRD001",`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"fractional quantity", `{"product_id": "PRD001", "event_type": "sale", "quantity": 1.5}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"oversell", saleBody("PRD001", 11), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"never purchased", saleBody("PRD404", 1), http.StatusNotFound, "UNKNOWN_PRODUCT"},
		{"duplicate event", map[string]interface{}{
			"event_id":   "evt-1",
			"product_id": "PRD001",
			"event_type": "sale",
			"quantity":   1,
		}, http.StatusConflict, "DUPLICATE_EVENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := suite.apply(tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}

	// Nothing above changed the product
	product, err := suite.engine.Product(context.Background(), "PRD001")
	require.NoError(t, err)
	assert.Equal(t, int64(10), product.CurrentQuantity)
	assert.True(t, product.TotalCost.Equal(decimal.NewFromInt(500)))
}

func (suite *APITestSuite) TestInsufficientStockDetails() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD002", 5, 10)).Code)

	w := suite.apply(saleBody("PRD002", 8))
	require.Equal(t, http.StatusConflict, w.Code)

	var details struct {
		ProductID string `json:"product_id"`
		Requested int64  `json:"requested"`
		Available int64  `json:"available"`
	}
	resp := decode(t, w)
	require.NoError(t, json.Unmarshal(resp.Error.Details, &details))
	assert.Equal(t, "PRD002", details.ProductID)
	assert.Equal(t, int64(8), details.Requested)
	assert.Equal(t, int64(5), details.Available)
}

func (suite *APITestSuite) TestLocalizedErrors() {
	t := suite.T()

	body, _ := json.Marshal(saleBody("PRD404", 1))
	req, _ := http.NewRequest(http.MethodPost, "/v1/events", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "zh-TW")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	assert.Equal(t, i18n.T("zh_TW", i18n.KeyEventUnknownProduct, "PRD404"), resp.Error.Message)
	assert.NotEqual(t, i18n.T("en", i18n.KeyEventUnknownProduct, "PRD404"), resp.Error.Message)
}

func (suite *APITestSuite) TestProducts() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD002", 10, 130)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 20, 95)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 5, 100)).Code)

	w := doRequest(suite.router, http.MethodGet, "/v1/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))

	var products []struct {
		ProductID string `json:"product_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &products))
	require.Len(t, products, 2)
	assert.Equal(t, "PRD001", products[0].ProductID)
	assert.Equal(t, "PRD002", products[1].ProductID)

	w = doRequest(suite.router, http.MethodGet, "/v1/products/PRD001", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap struct {
		Product struct {
			CurrentQuantity int64  `json:"current_quantity"`
			TotalCost       string `json:"total_cost"`
			AverageCost     string `json:"average_cost"`
		} `json:"product"`
		Batches []struct {
			RemainingQuantity int64  `json:"remaining_quantity"`
			UnitPrice         string `json:"unit_price"`
		} `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	assert.Equal(t, int64(25), snap.Product.CurrentQuantity)
	assert.Equal(t, "2400.00", snap.Product.TotalCost)
	assert.Equal(t, "96.00", snap.Product.AverageCost)
	require.Len(t, snap.Batches, 2)
	assert.Equal(t, "95.00", snap.Batches[0].UnitPrice)
	assert.Equal(t, "100.00", snap.Batches[1].UnitPrice)

	w = doRequest(suite.router, http.MethodGet, "/v1/products/PRD404", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)
}

func (suite *APITestSuite) TestTransactionsNewestFirst() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 10, 50)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(saleBody("PRD001", 3)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(saleBody("PRD001", 4)).Code)

	w := doRequest(suite.router, http.MethodGet, "/v1/transactions?limit=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Per-Page"))

	var transactions []struct {
		Quantity int64  `json:"quantity"`
		Sequence uint64 `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &transactions))
	require.Len(t, transactions, 2)
	assert.Equal(t, int64(4), transactions[0].Quantity)
	assert.Equal(t, int64(3), transactions[1].Quantity)
	assert.Greater(t, transactions[0].Sequence, transactions[1].Sequence)
}

func (suite *APITestSuite) TestBatchesAndInventory() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 10, 50)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD003", 7, 45)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(saleBody("PRD001", 10)).Code)

	w := doRequest(suite.router, http.MethodGet, "/v1/batches?product_id=PRD001", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var batches []struct {
		ProductID         string `json:"product_id"`
		RemainingQuantity int64  `json:"remaining_quantity"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, int64(0), batches[0].RemainingQuantity)

	w = doRequest(suite.router, http.MethodGet, "/v1/inventory", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Products     []json.RawMessage `json:"products"`
		Transactions []json.RawMessage `json:"transactions"`
		Batches      []json.RawMessage `json:"batches"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Len(t, view.Products, 2)
	assert.Len(t, view.Transactions, 3)
	assert.Len(t, view.Batches, 2)
}

func (suite *APITestSuite) TestSimulate() {
	t := suite.T()
	for _, id := range simulator.DefaultProducts {
		require.Equal(t, http.StatusCreated, suite.apply(purchaseBody(id, 1000, 100)).Code)
	}

	w := doRequest(suite.router, http.MethodPost, "/v1/simulate", nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Event struct {
			ProductID string `json:"product_id"`
			EventType string `json:"event_type"`
			Quantity  int64  `json:"quantity"`
		} `json:"event"`
		Result struct {
			Transaction struct {
				ProductID string `json:"product_id"`
			} `json:"transaction"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Contains(t, simulator.DefaultProducts, data.Event.ProductID)
	assert.Equal(t, data.Event.ProductID, data.Result.Transaction.ProductID)
	assert.GreaterOrEqual(t, data.Event.Quantity, int64(10))
	assert.LessOrEqual(t, data.Event.Quantity, int64(59))
}

func (suite *APITestSuite) TestValuationReport() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 100, 80)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 100, 90)).Code)
	require.Equal(t, http.StatusCreated, suite.apply(saleBody("PRD001", 150)).Code)

	w := doRequest(suite.router, http.MethodGet, "/v1/reports/valuation", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		Lines []struct {
			ProductID       string `json:"product_id"`
			Quantity        int64  `json:"quantity"`
			OpenBatches     int    `json:"open_batches"`
			OldestBatchCost string `json:"oldest_batch_cost"`
		} `json:"lines"`
		TotalValue string `json:"total_value"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	require.Len(t, report.Lines, 1)
	assert.Equal(t, int64(50), report.Lines[0].Quantity)
	assert.Equal(t, 1, report.Lines[0].OpenBatches)
	assert.Equal(t, "90.00", report.Lines[0].OldestBatchCost)
	assert.Equal(t, "4500.00", report.TotalValue)

	w = doRequest(suite.router, http.MethodGet, "/v1/reports/valuation?format=csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "valuation-")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "PRD001,50,4500.00,90.00,1,90.00,"))
	assert.Equal(t, "TOTAL,50,4500.00,,,,", lines[2])
}

func (suite *APITestSuite) TestExportWithoutStorage() {
	w := doRequest(suite.router, http.MethodPost, "/v1/reports/valuation/export", nil, "")
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	assert.Equal(suite.T(), "SERVICE_UNAVAILABLE", decode(suite.T(), w).Error.Code)
}

func (suite *APITestSuite) TestHealth() {
	t := suite.T()
	require.Equal(t, http.StatusCreated, suite.apply(purchaseBody("PRD001", 10, 50)).Code)

	w := doRequest(suite.router, http.MethodGet, "/health?reconcile=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status        string            `json:"status"`
		Version       string            `json:"version"`
		Environment   string            `json:"environment"`
		Timestamp     string            `json:"timestamp"`
		LastSequence  uint64            `json:"last_sequence"`
		Discrepancies []json.RawMessage `json:"discrepancies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, config.ServiceVersion, body.Version)
	assert.Equal(t, "test", body.Environment)
	assert.Equal(t, uint64(1), body.LastSequence)
	assert.Empty(t, body.Discrepancies)
	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}

func (suite *APITestSuite) TestSimulatorScriptOverHTTP() {
	t := suite.T()
	server := httptest.NewServer(suite.router)
	defer server.Close()

	publisher := simulator.NewHTTPPublisher(server.URL, 5*time.Second)
	defer publisher.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	runner := simulator.NewRunner(simulator.NewGenerator(nil, 1), publisher, logger)

	summary, err := runner.Run(context.Background(), simulator.RunOptions{Scripted: true})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Sent)
	assert.Equal(t, 0, summary.Rejected)

	expected := map[string]int64{"PRD001": 70, "PRD002": 30, "PRD003": 75}
	for id, qty := range expected {
		product, err := suite.engine.Product(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, qty, product.CurrentQuantity, id)
	}

	// A sale beyond stock comes back as a rejection
	quantity := int64(500)
	err = publisher.Publish(context.Background(), models.RawEvent{
		ProductID: "PRD001",
		EventType: "sale",
		Quantity:  &quantity,
	})
	var rejected *simulator.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusConflict, rejected.Status)
	assert.Equal(t, "INSUFFICIENT_STOCK", rejected.Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

type AuthTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *AuthTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize("en", ""))
	suite.router, _ = newRouter(suite.T(), true)
}

func (suite *AuthTestSuite) login(password string) *httptest.ResponseRecorder {
	return doRequest(suite.router, http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"username": operatorUsername,
		"password": password,
	}, "")
}

func (suite *AuthTestSuite) TestRoutesRequireToken() {
	t := suite.T()

	w := doRequest(suite.router, http.MethodGet, "/v1/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(suite.router, http.MethodPost, "/v1/events", purchaseBody("PRD001", 1, 1), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(suite.router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *AuthTestSuite) TestLoginRejectsWrongPassword() {
	w := suite.login("wrong-password")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "UNAUTHORIZED", decode(suite.T(), w).Error.Code)
}

func (suite *AuthTestSuite) TestLoginThenApply() {
	t := suite.T()

	w := suite.login(operatorPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.NotEmpty(t, data.AccessToken)
	assert.Equal(t, "Bearer", data.TokenType)

	w = doRequest(suite.router, http.MethodPost, "/v1/events", purchaseBody("PRD001", 10, 80), data.AccessToken)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (suite *AuthTestSuite) TestSimulatorLogsIn() {
	t := suite.T()
	server := httptest.NewServer(suite.router)
	defer server.Close()

	publisher := simulator.NewHTTPPublisher(server.URL, 5*time.Second)
	defer publisher.Close()

	require.NoError(t, publisher.Login(context.Background(), operatorUsername, operatorPassword))
	assert.NoError(t, publisher.Publish(context.Background(), simulator.NewGenerator(nil, 1).Script()[0]))
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
