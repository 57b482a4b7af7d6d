package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// captchaPNG renders a 76x24 captcha whose columns carry the given black counts.
func captchaPNG(t *testing.T, counts []int) []byte {
	t.Helper()
	img := imaging.New(76, 24, color.NRGBA{255, 255, 255, 255})
	for x, n := range counts {
		for y := 0; y < n; y++ {
			img.Set(x, y, color.NRGBA{10, 10, 10, 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func multipartFile(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", name)
	_, _ = w.Write(data)
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("integration-secret")
	t.Setenv("UPLOAD_BASE", t.TempDir())
	initDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		adminSecret = defaultAdminSecret
	}

	// 1. Admin token
	body, _ := json.Marshal(map[string]string{"client": "admin", "secret": adminSecret})
	resp := performRequest(r, http.MethodPost, "/token", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("admin token failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var tok map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &tok)
	adminToken, _ := tok["token"].(string)

	// 2. Register a client (409 when a previous run created it)
	body, _ = json.Marshal(map[string]string{"client": "client1", "secret": "client1-secret-xyz"})
	resp = performRequest(r, http.MethodPost, "/clients", bytes.NewBuffer(body), adminToken, "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register client failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 3. Client token
	body, _ = json.Marshal(map[string]string{"client": "client1", "secret": "client1-secret-xyz"})
	resp = performRequest(r, http.MethodPost, "/token", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("client token failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &tok)
	token, _ := tok["token"].(string)

	// 4. Solve "1"
	buf, ct := multipartFile(t, "one.png", captchaPNG(t, []int{0, 3, 6, 10, 14, 0}))
	resp = performRequest(r, http.MethodPost, "/solve", buf, token, ct)
	if resp.Code != 200 {
		t.Fatalf("solve failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var solved map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &solved)
	if v, _ := solved["value"].(float64); v != 1 {
		t.Fatalf("expected value 1 got %v", solved)
	}

	// 5. List, summary, single attempt
	resp = performRequest(r, http.MethodGet, "/attempts", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list attempts failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/attempts/summary", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("summary failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	id, _ := solved["attempt_id"].(float64)
	resp = performRequest(r, http.MethodGet, "/attempts/"+jsonNumber(id), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("get attempt failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Non-admin cannot create clients
	resp = performRequest(r, http.MethodPost, "/clients", bytes.NewBufferString(`{"client":"x","secret":"yyyyyyyyyyyyyy"}`), token, "application/json")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
