package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	warehouseapp "github.com/dirac/fulfillment/internal/application/warehouse"
	"github.com/dirac/fulfillment/internal/interfaces/http/dto"
	"github.com/dirac/fulfillment/internal/interfaces/http/middleware"
	"github.com/dirac/fulfillment/internal/testsupport/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newWarehouseTestServer(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	service := warehouseapp.NewWarehouseService(store.Warehouses(), zap.NewNop())

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewWarehouseHandler(service).RegisterRoutes(api)
	return engine, store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWarehouseHandler_Create(t *testing.T) {
	engine, _ := newWarehouseTestServer(t)

	t.Run("creates a warehouse", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", CreateWarehouseRequest{
			Code:  "LDN",
			Name:  "London",
			Owned: true,
		})

		require.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "LDN", data["code"])
		assert.Equal(t, true, data["owned"])
		assert.NotEmpty(t, data["id"])
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", CreateWarehouseRequest{
			Code: "LDN",
			Name: "London again",
		})

		require.Equal(t, http.StatusConflict, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", map[string]any{
			"code": "BER",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWarehouseHandler_Get(t *testing.T) {
	engine, _ := newWarehouseTestServer(t)

	created := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", CreateWarehouseRequest{
		Code: "BER", Name: "Berlin",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id := decodeResponse(t, created).Data.(map[string]interface{})["id"].(string)

	t.Run("returns the warehouse", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/warehouses/"+id, nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "BER", data["code"])
	})

	t.Run("404 for an unknown ID", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/warehouses/"+uuid.NewString(), nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("400 for a malformed ID", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/warehouses/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWarehouseHandler_Update(t *testing.T) {
	engine, _ := newWarehouseTestServer(t)

	created := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", CreateWarehouseRequest{
		Code: "MCR", Name: "Manchester", Owned: true, Priority: 2,
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id := decodeResponse(t, created).Data.(map[string]interface{})["id"].(string)

	t.Run("renames and reprioritizes", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPut, "/api/v1/warehouses/"+id, map[string]any{
			"name":     "Manchester North",
			"priority": 0,
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "Manchester North", data["name"])
		assert.Equal(t, float64(0), data["priority"])
	})

	t.Run("omitted fields stay unchanged", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPut, "/api/v1/warehouses/"+id, map[string]any{
			"priority": 5,
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "Manchester North", data["name"])
		assert.Equal(t, float64(5), data["priority"])
	})

	t.Run("404 for an unknown ID", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPut, "/api/v1/warehouses/"+uuid.NewString(), map[string]any{
			"name": "Ghost",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWarehouseHandler_ListOwned(t *testing.T) {
	engine, _ := newWarehouseTestServer(t)

	for _, req := range []CreateWarehouseRequest{
		{Code: "SUP", Name: "Supplier", Owned: false},
		{Code: "SEC", Name: "Secondary", Owned: true, Priority: 1},
		{Code: "PRI", Name: "Primary", Owned: true, Priority: 0},
	} {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/warehouses", req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/warehouses/owned", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeResponse(t, w).Data.([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "PRI", data[0].(map[string]interface{})["code"])
	assert.Equal(t, "SEC", data[1].(map[string]interface{})["code"])
}
