package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/events"
	"github.com/shortkv/shortkv/pkg/shortkv/health"
	"github.com/shortkv/shortkv/pkg/shortkv/links"
	"github.com/shortkv/shortkv/pkg/shortkv/redirect"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
	"github.com/shortkv/shortkv/pkg/shortkv/users"
)

const testDeleteKey = "integration-delete-key"

// setupFullServer creates a Gin engine with all routes registered,
// mirroring the setup in cmd/shortkv-server/main.go.
func setupFullServer(t *testing.T, s store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	checker := health.NewChecker(s, time.Minute, nil)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "shortkv"})
	})
	r.GET("/health", func(c *gin.Context) {
		if checker.Healthy() {
			c.JSON(200, gin.H{"status": "ok"})
			return
		}
		c.JSON(503, gin.H{"status": "error", "error": "Error in connecting to database"})
	})

	gated := r.Group("", health.Gate(checker))

	linksHandler := links.NewHandler(s)
	linksHandler.RegisterRoutes(gated)

	usersHandler := users.NewHandler(s, testDeleteKey)
	usersHandler.RegisterRoutes(gated.Group("/user"))

	redirectHandler := redirect.NewHandler(s, events.NopPublisher{})
	redirectHandler.RegisterRoutes(gated)

	return r
}

func setupTestStore(t *testing.T) store.Store {
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	return s
}

func doJSON(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// TestServerStartup verifies that all routes can be registered without conflicts.
func TestServerStartup(t *testing.T) {
	router := setupFullServer(t, setupTestStore(t))
	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestHealthEndpoint verifies the health endpoint responds correctly.
func TestHealthEndpoint(t *testing.T) {
	router := setupFullServer(t, setupTestStore(t))

	req, _ := http.NewRequest("GET", "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

// TestHealthServedWhileStoreDown verifies the health endpoint keeps answering
// when the store never came up, while gated routes are refused.
func TestHealthServedWhileStoreDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	checker := health.NewChecker(nil, time.Minute, nil)

	r.GET("/health", func(c *gin.Context) {
		if checker.Healthy() {
			c.JSON(200, gin.H{"status": "ok"})
			return
		}
		c.JSON(503, gin.H{"status": "error", "error": "Error in connecting to database"})
	})
	gated := r.Group("", health.Gate(checker))
	links.NewHandler(nil).RegisterRoutes(gated)

	req, _ := http.NewRequest("GET", "/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from health while store down, got %d", resp.Code)
	}

	resp = doJSON(r, "POST", "/createLink", links.CreateLinkRequest{RedirectLink: "https://example.com"}, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from gated route while store down, got %d", resp.Code)
	}
}

// TestProtectedEndpointsRequireAuth verifies that owner-gated endpoints return
// 401 without a token.
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	router := setupFullServer(t, setupTestStore(t))

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"DELETE", "/delete/somekey1"},
		{"POST", "/update/somekey1"},
		{"POST", "/batchRetrieve"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestFullAccountLinkFlow walks the whole API surface: register, login,
// create an owned link, list it, rename its key, follow the redirect,
// delete it, and confirm it is gone.
func TestFullAccountLinkFlow(t *testing.T) {
	router := setupFullServer(t, setupTestStore(t))

	// Register
	resp := doJSON(router, "POST", "/user/create", users.CreateUserRequest{
		Username: "alice123",
		Email:    "alice@example.com",
		Password: "password1",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	// Login and capture the token
	resp = doJSON(router, "POST", "/user/login", users.LoginRequest{
		Username: "alice123",
		Password: "password1",
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var login map[string]string
	json.Unmarshal(resp.Body.Bytes(), &login)
	token := login["token"]
	if token == "" {
		t.Fatal("Login: expected a token")
	}

	// Create an owned link via the token
	resp = doJSON(router, "POST", "/createLink", links.CreateLinkRequest{
		RedirectLink: "https://example.com/docs",
	}, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create link: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created links.CreateLinkResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.ExpiryDateUNIX.String() != "-" {
		t.Errorf("Owned link must never expire, got %v", created.ExpiryDateUNIX)
	}

	// The link shows up in the owner's batch retrieval
	resp = doJSON(router, "POST", "/batchRetrieve", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Batch retrieve: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var batch links.BatchRetrieveResponse
	json.Unmarshal(resp.Body.Bytes(), &batch)
	if len(batch.Links) != 1 || batch.Links[0].URLKey != created.URLKey {
		t.Fatalf("Batch retrieve: expected the created link, got %+v", batch.Links)
	}

	// Rename the key
	resp = doJSON(router, "POST", "/update/"+created.URLKey, links.UpdateKeyRequest{
		NewURLKey: "mydocs01",
	}, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Update key: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	// The old key is gone, the new one redirects
	req, _ := http.NewRequest("GET", "/r/"+created.URLKey, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Old key: expected 404, got %d", rr.Code)
	}

	req, _ = http.NewRequest("GET", "/r/mydocs01", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("New key: expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://example.com/docs" {
		t.Errorf("Unexpected Location: %q", loc)
	}

	// Delete the link and confirm it is gone
	req, _ = http.NewRequest("DELETE", "/delete/mydocs01", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Delete: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req, _ = http.NewRequest("GET", "/goto/mydocs01", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Deleted key: expected 404, got %d", rr.Code)
	}
}

// TestAnonymousLinkFlow verifies the unauthenticated create-and-resolve path.
func TestAnonymousLinkFlow(t *testing.T) {
	router := setupFullServer(t, setupTestStore(t))

	resp := doJSON(router, "POST", "/createLink", links.CreateLinkRequest{
		RedirectLink: "https://example.com/anon",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created links.CreateLinkResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.ExpiryDateUNIX.String() == "-" {
		t.Error("Anonymous link must carry a finite expiry")
	}

	req, _ := http.NewRequest("GET", "/r/"+created.URLKey, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Errorf("Expected 302, got %d", rr.Code)
	}
}
