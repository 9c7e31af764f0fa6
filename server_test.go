package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/models/reports"
	"github.com/mmdatafocus/returns_backend/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	testutil.OpenDB(t)
	return setupRouter(config.GetLogger())
}

func doJSON(t *testing.T, r http.Handler, method string, path string, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, loginId string, secret string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/login", "", map[string]string{"login_id": loginId, "secret": secret})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info models.LoginInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	return info.Token
}

func TestStoreSubmissionShowsInMatrix(t *testing.T) {
	r := newTestRouter(t)
	testutil.CreateAdmin(t)
	testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA", "化粧箱B")

	storeToken := login(t, r, "store_2017", "store_password123")
	adminToken := login(t, r, "admin", "admin_password123")

	w := doJSON(t, r, http.MethodPut, "/api/store/reports/2026-01-A", storeToken, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": products[0].ID, "quantity": 3, "category": string(models.DefectCategoryShippingDamage)},
			{"product_id": products[1].ID, "quantity": 0},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/store/reports/2026-01-A", storeToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var draft models.ReportDraft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	require.Len(t, draft.Rows, 2)
	assert.Equal(t, 3, draft.Rows[0].Quantity)
	assert.Equal(t, 0, draft.Rows[1].Quantity)

	w = doJSON(t, r, http.MethodGet, "/api/admin/reports/2026-01-A/matrix", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var matrix reports.ReturnMatrix
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matrix))
	require.Len(t, matrix.Rows, 1)
	assert.Equal(t, []int{3, 0}, matrix.Rows[0].Cells)
	assert.Equal(t, 3, matrix.GrandTotal)

	w = doJSON(t, r, http.MethodGet, "/api/admin/reports/2026-01-A/export", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reports.ExcelContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="returns_2026-01-A.xlsx"`)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''")
	assert.NotZero(t, w.Body.Len())
}

func TestRoleEnforcement(t *testing.T) {
	r := newTestRouter(t)
	testutil.CreateAdmin(t)
	testutil.CreateStore(t, "中野店", "2017")
	storeToken := login(t, r, "store_2017", "store_password123")
	adminToken := login(t, r, "admin", "admin_password123")

	w := doJSON(t, r, http.MethodGet, "/api/admin/reports/2026-01-A/matrix", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/admin/reports/2026-01-A/matrix", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/admin/reports/2026-01-A/matrix", storeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodPut, "/api/store/reports/2026-01-A", adminToken, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/login", "", map[string]string{"login_id": "store_2017", "secret": "wrong_password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmissionErrorStatuses(t *testing.T) {
	r := newTestRouter(t)
	testutil.CreateAdmin(t)
	testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "A")
	storeToken := login(t, r, "store_2017", "store_password123")
	adminToken := login(t, r, "admin", "admin_password123")

	item := func(qty int) map[string]interface{} {
		return map[string]interface{}{"items": []map[string]interface{}{{"product_id": products[0].ID, "quantity": qty}}}
	}
	cases := []struct {
		path string
		body interface{}
		want int
	}{
		{"/api/store/reports/2026-1-A", item(1), http.StatusBadRequest},
		{"/api/store/reports/2026-01-A", item(-1), http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPut, tc.path, storeToken, tc.body)
		assert.Equal(t, tc.want, w.Code, fmt.Sprintf("%s %s", tc.path, w.Body.String()))
	}

	w := doJSON(t, r, http.MethodPost, "/api/admin/periods/2026-01-A/lock", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPut, "/api/store/reports/2026-01-A", storeToken, item(1))
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/admin/periods/2026-01-A/lock", adminToken, nil)
	assert.Less(t, w.Code, 300)
	w = doJSON(t, r, http.MethodPut, "/api/store/reports/2026-01-A", storeToken, item(1))
	assert.Equal(t, http.StatusOK, w.Code)
}
