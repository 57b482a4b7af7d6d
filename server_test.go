package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"numcap/models"

	"github.com/gin-gonic/gin"
)

// newDBlessServer wires the routes without a database; attempts are only logged.
func newDBlessServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("unit-secret")
	t.Setenv("UPLOAD_BASE", t.TempDir())
	r := gin.New()
	setupRoutes(r)
	return r
}

func clientToken(t *testing.T) string {
	t.Helper()
	tok, err := issueToken(models.Client{ID: 7, Name: "tester", Role: models.Role{Name: models.RoleClient}}, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func TestSolveEndpoint(t *testing.T) {
	if db != nil {
		t.Skip("database attached")
	}
	r := newDBlessServer(t)
	// "1" then "2"
	counts := []int{0, 3, 6, 10, 14, 0, 18, 16, 16, 16, 16, 16, 0}
	buf, ct := multipartFile(t, "12.png", captchaPNG(t, counts))
	resp := performRequest(r, http.MethodPost, "/solve", buf, clientToken(t), ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("solve status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out["value"].(float64) != 12 || out["digits"] != "12" {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestSolveEndpointUnrecognized(t *testing.T) {
	if db != nil {
		t.Skip("database attached")
	}
	r := newDBlessServer(t)
	buf, ct := multipartFile(t, "bad.png", captchaPNG(t, []int{0, 0, 5, 6, 4, 0, 0}))
	resp := performRequest(r, http.MethodPost, "/solve", buf, clientToken(t), ct)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d body=%s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out["reason"] != "unrecognized_signature" || out["signature"].(float64) != 29 {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestSolveRequiresToken(t *testing.T) {
	r := newDBlessServer(t)
	buf, ct := multipartFile(t, "x.png", captchaPNG(t, nil))
	if resp := performRequest(r, http.MethodPost, "/solve", buf, "", ct); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp := performRequest(r, http.MethodPost, "/solve", buf, "not-a-jwt", ct); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestSolveRejectsOversizedUpload(t *testing.T) {
	r := newDBlessServer(t)
	t.Setenv("MAX_UPLOAD_BYTES", "16")
	buf, ct := multipartFile(t, "big.png", captchaPNG(t, nil))
	resp := performRequest(r, http.MethodPost, "/solve", buf, clientToken(t), ct)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", resp.Code)
	}
}

func TestStoreUploadPathResolvesFromWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("UPLOAD_BASE", "uploads")
	gin.SetMode(gin.TestMode)

	buf, ct := multipartFile(t, "x.png", captchaPNG(t, nil))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/solve", buf)
	c.Request.Header.Set("Content-Type", ct)

	got := storeUpload(c, "tester", "x.png")
	if !strings.HasPrefix(got, "uploads/tester/") || !strings.HasSuffix(got, "-x.png") {
		t.Fatalf("unexpected store path %q", got)
	}
	if _, err := os.Stat(filepath.FromSlash(got)); err != nil {
		t.Fatalf("recorded store path does not resolve: %v", err)
	}
}

func TestAdminSeedSecretLength(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "")
	got, err := adminSeedSecret()
	if err != nil || got != defaultAdminSecret {
		t.Fatalf("default secret: %q %v", got, err)
	}
	if len(defaultAdminSecret) < minSecretLen {
		t.Fatalf("default admin secret shorter than %d", minSecretLen)
	}
	t.Setenv("ADMIN_SECRET", "admin123")
	if _, err := adminSeedSecret(); err == nil {
		t.Fatalf("expected short ADMIN_SECRET to be refused")
	}
	t.Setenv("ADMIN_SECRET", "a-long-enough-secret")
	if got, err := adminSeedSecret(); err != nil || got != "a-long-enough-secret" {
		t.Fatalf("explicit secret: %q %v", got, err)
	}
}

func TestCreateClientForbiddenForClients(t *testing.T) {
	r := newDBlessServer(t)
	resp := performRequest(r, http.MethodPost, "/clients", nil, clientToken(t), "application/json")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestSanitizeSegment(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "_.._etc_passwd",
		"ok-name_1.png":    "ok-name_1.png",
		"":                 "_",
		"...":              "_",
	}
	for in, want := range cases {
		if got := sanitizeSegment(in); got != want {
			t.Fatalf("sanitizeSegment(%q) = %q want %q", in, got, want)
		}
	}
}

func TestHealthz(t *testing.T) {
	r := newDBlessServer(t)
	if resp := performRequest(r, http.MethodGet, "/healthz", nil, "", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
