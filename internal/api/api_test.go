package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/erazemk/popis/internal/auth"
	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testScope     = "test"
)

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	st := store.NewSQLite(db.NewTestDB(t), 0)
	svc := inventory.New(inventory.Config{
		Store:   st,
		Photos:  st,
		Catalog: model.DefaultCatalog(),
	})
	server := httptest.NewServer(NewRouter(svc, testJWTSecret))
	t.Cleanup(server.Close)

	return server, testToken(t, testScope)
}

func testToken(t *testing.T, scope string) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, scope, 0)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func itemsURL(server *httptest.Server, category model.Category) string {
	return server.URL + "/api/categories/" + url.PathEscape(string(category)) + "/items"
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", req.Method, req.URL.Path, wantStatus, resp.StatusCode, body)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func testJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 40, 40, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, server *httptest.Server, token string, category model.Category, part string) *http.Request {
	t.Helper()
	return uploadFile(t, server, token, category, part, testJPEG(40, 20))
}

func uploadFile(t *testing.T, server *httptest.Server, token string, category model.Category, part string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("category", string(category))
	if part != "" {
		mw.WriteField("part", part)
	}
	fw, err := mw.CreateFormFile("image", "capture.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/photos", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/categories")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := authRequest("GET", server.URL+"/api/categories", "not-a-token", nil)
	do(t, req, http.StatusUnauthorized, nil)

	other, _ := auth.GenerateToken("other-secret", testScope, 0)
	req, _ = authRequest("GET", server.URL+"/api/categories", other, nil)
	do(t, req, http.StatusUnauthorized, nil)
}

func TestPublicEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	if n := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/healthz", "200")); n < 1 {
		t.Errorf("expected /healthz to be counted, got %v", n)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	// Capture a photo.
	var photo model.Photo
	do(t, uploadRequest(t, server, token, model.CategoryITEquipment, "CPU"), http.StatusCreated, &photo)
	if photo.Part != "CPU" {
		t.Errorf("expected part CPU, got %q", photo.Part)
	}
	if !strings.HasPrefix(photo.URL, store.PhotoURLPrefix) {
		t.Fatalf("expected blob URL, got %q", photo.URL)
	}

	// The photo is served without a token.
	resp, err := http.Get(server.URL + photo.URL)
	if err != nil {
		t.Fatalf("GET photo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for photo, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}

	// Create item.
	var item model.Item
	req, _ := authRequest("POST", itemsURL(server, model.CategoryITEquipment), token, map[string]any{
		"accountableOfficer": "J. Cruz",
		"location":           "Room 3",
		"photos":             []model.Photo{photo},
	})
	do(t, req, http.StatusCreated, &item)
	if item.ID == "" || item.AccountableOfficer != "J. Cruz" {
		t.Fatalf("unexpected item: %+v", item)
	}
	itemURL := itemsURL(server, model.CategoryITEquipment) + "/" + item.ID

	// Mark done.
	req, _ = authRequest("PUT", itemURL+"/done", token, map[string]bool{"done": true})
	do(t, req, http.StatusOK, &item)
	if !item.IsUpdated || item.UpdatedAt != nil {
		t.Errorf("done toggle: isUpdated=%v updatedAt=%v", item.IsUpdated, item.UpdatedAt)
	}

	// Filters.
	var items []model.Item
	req, _ = authRequest("GET", itemsURL(server, model.CategoryITEquipment)+"?filter=done", token, nil)
	do(t, req, http.StatusOK, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 done item, got %d", len(items))
	}
	req, _ = authRequest("GET", itemsURL(server, model.CategoryITEquipment)+"?filter=pending", token, nil)
	do(t, req, http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("expected 0 pending items, got %d", len(items))
	}

	// Edit keeps the photos when none are sent.
	req, _ = authRequest("PUT", itemURL, token, map[string]any{
		"accountableOfficer": "J. Cruz",
		"location":           "Room 4",
	})
	do(t, req, http.StatusOK, &item)
	if item.Location != "Room 4" || item.UpdatedAt == nil || len(item.Photos) != 1 {
		t.Errorf("unexpected edited item: %+v", item)
	}

	// Counts.
	var counts []inventory.Count
	req, _ = authRequest("GET", server.URL+"/api/categories", token, nil)
	do(t, req, http.StatusOK, &counts)
	for _, c := range counts {
		if c.Category == model.CategoryITEquipment && (c.Total != 1 || c.Done != 1) {
			t.Errorf("unexpected IT EQUIPMENT count: %+v", c)
		}
	}

	// Delete.
	req, _ = authRequest("DELETE", itemURL, token, nil)
	do(t, req, http.StatusOK, nil)
	req, _ = authRequest("GET", itemURL, token, nil)
	do(t, req, http.StatusNotFound, nil)
}

func TestRequestErrors(t *testing.T) {
	server, token := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		url    string
		body   any
		want   int
	}{
		{"unknown category", "GET", server.URL + "/api/categories/NOPE/items", nil, http.StatusNotFound},
		{"bad filter", "GET", itemsURL(server, model.CategoryLand) + "?filter=some", nil, http.StatusBadRequest},
		{"no photos", "POST", itemsURL(server, model.CategoryLand), map[string]string{"description": "Lot 4"}, http.StatusBadRequest},
		{"no details", "POST", itemsURL(server, model.CategoryLand), map[string]any{
			"photos": []model.Photo{{URL: "data:image/jpeg;base64,AQ=="}},
		}, http.StatusBadRequest},
		{"missing item", "PUT", itemsURL(server, model.CategoryLand) + "/nope/done", map[string]bool{"done": true}, http.StatusNotFound},
		{"invalid body", "POST", itemsURL(server, model.CategoryLand), "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := authRequest(tt.method, tt.url, token, tt.body)
			do(t, req, tt.want, nil)
		})
	}
}

func TestPhotoUploadRequiresPart(t *testing.T) {
	server, token := setupTestServer(t)

	do(t, uploadRequest(t, server, token, model.CategoryITEquipment, ""), http.StatusBadRequest, nil)

	// Other categories drop the label.
	var photo model.Photo
	do(t, uploadRequest(t, server, token, model.CategoryLand, "CPU"), http.StatusCreated, &photo)
	if photo.Part != "" {
		t.Errorf("expected part dropped, got %q", photo.Part)
	}
}

func TestUndecodableUploadServedAsAttachment(t *testing.T) {
	server, token := setupTestServer(t)

	var photo model.Photo
	page := []byte("<html><script>alert(document.cookie)</script></html>")
	do(t, uploadFile(t, server, token, model.CategoryLand, "", page), http.StatusCreated, &photo)

	resp, err := http.Get(server.URL + photo.URL)
	if err != nil {
		t.Fatalf("GET photo: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Equal(body, page) {
		t.Error("original bytes not kept")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}
	if v := resp.Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", v)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment" {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}
}

func TestMissingPhoto(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + store.PhotoURL(strings.Repeat("ab", 32)))
	if err != nil {
		t.Fatalf("GET photo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

const testBackup = `{
  "LAND": [
    {"id": "land-1", "description": "Lot 4", "photos": [{"url": "data:image/jpeg;base64,AQ=="}], "createdAt": "2024-03-01T09:00:00Z"}
  ],
  "IT EQUIPMENT": [
    {"id": "it-1", "accountableOfficer": "R. Santos", "photos": [{"url": "data:image/jpeg;base64,AQ==", "part": "Monitor"}], "createdAt": "2024-03-02T09:00:00Z"}
  ]
}`

func importRequest(server *httptest.Server, token, body string) *http.Request {
	req, _ := http.NewRequest("POST", server.URL+"/api/import", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestImportExport(t *testing.T) {
	server, token := setupTestServer(t)

	var stats importResponse
	do(t, importRequest(server, token, testBackup), http.StatusOK, &stats)
	if stats.Added != 2 {
		t.Errorf("expected 2 added, got %+v", stats)
	}

	// Importing the same document again changes nothing.
	do(t, importRequest(server, token, testBackup), http.StatusOK, &stats)
	if stats.Added != 0 || stats.Kept != 2 {
		t.Errorf("expected 2 kept, got %+v", stats)
	}

	req, _ := authRequest("GET", server.URL+"/api/export", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "inventory_backup_") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	var exported map[string][]model.Item
	json.NewDecoder(resp.Body).Decode(&exported)
	if len(exported["LAND"]) != 1 || exported["IT EQUIPMENT"][0].Photos[0].Part != "Monitor" {
		t.Errorf("unexpected export: %+v", exported)
	}
}

func TestImportErrors(t *testing.T) {
	server, token := setupTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown category", `{"GARDEN": []}`, http.StatusBadRequest},
		{"not json", `{"LAND": [`, http.StatusUnprocessableEntity},
		{"missing part", `{"IT EQUIPMENT": [{"id": "x", "photos": [{"url": "data:,"}], "createdAt": "2024-03-02T09:00:00Z"}]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, importRequest(server, token, tt.body), tt.want, nil)
		})
	}

	var items []model.Item
	req, _ := authRequest("GET", itemsURL(server, model.CategoryITEquipment), token, nil)
	do(t, req, http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("rejected import left %d items", len(items))
	}
}

func TestScopesAreIsolated(t *testing.T) {
	server, token := setupTestServer(t)
	do(t, importRequest(server, token, testBackup), http.StatusOK, nil)

	var items []model.Item
	req, _ := authRequest("GET", itemsURL(server, model.CategoryLand), testToken(t, "other"), nil)
	do(t, req, http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("expected empty scope, got %d items", len(items))
	}
}

func TestArchiveEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	do(t, importRequest(server, token, testBackup), http.StatusOK, nil)

	req, _ := authRequest("GET", server.URL+"/api/archive", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected application/zip, got %q", ct)
	}

	data, _ := io.ReadAll(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading zip: %v", err)
	}
	var descriptions int
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "description.txt") {
			descriptions++
		}
	}
	if descriptions != 2 {
		t.Errorf("expected 2 descriptions, got %d", descriptions)
	}
}
