package app

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taxportal/api/internal/session"
	"taxportal/api/internal/store"
)

const (
	testCookie   = "taxportal_session"
	testPassword = "password123"
)

// 1x1 transparent PNG, small enough to inline and real enough to pass
// content sniffing on upload.
var testPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

// newTestServer builds a handler over the in-memory fake store with one
// admin, two divisions and one institution per division.
func newTestServer(t *testing.T) (*HTTPServer, *fakeStore) {
	t.Helper()
	hash := mustHashPassword(t, testPassword)

	fs := newFakeStore()
	fs.admins = []store.Admin{
		{AdminID: "ADM1", Email: "admin@example.gov", PasswordHash: hash},
	}
	fs.divisions = []store.DivisionUser{
		{DivisionID: "DIV1", AdminID: "ADM1", Division: "North Division", Email: "north@example.gov", PasswordHash: hash, PhoneNumber: "9000000001"},
		{DivisionID: "DIV2", AdminID: "ADM1", Division: "South Division", Email: "south@example.gov", PasswordHash: hash, PhoneNumber: "9000000002"},
	}
	fs.institutions = []store.InstitutionUser{
		{
			InstitutionID: "INST1", DivisionID: "DIV1", Email: "school@example.gov",
			PasswordHash: hash, PhoneNumber: "9000000011", InstitutionName: "Govt High School",
			KhathaOrPropertyNo: "KH-101", NameOfKhathadar: "Headmaster", District: "North",
		},
		{
			InstitutionID: "INST2", DivisionID: "DIV2", Email: "clinic@example.gov",
			PasswordHash: hash, PhoneNumber: "9000000012", InstitutionName: "Primary Health Centre",
			KhathaOrPropertyNo: "KH-202", NameOfKhathadar: "Medical Officer", District: "South",
		},
	}

	service := NewService(fs, session.NewMemoryStore(time.Hour))
	return NewHTTPServer(service, testCookie), fs
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

// seedPayment inserts a payment record directly into the fake store and
// returns its serial number.
func seedPayment(fs *fakeStore, institutionID string, year int, receipt string, withBill bool) int {
	fs.nextSlNo++
	slNo := fs.nextSlNo
	fs.payments[slNo] = store.PaymentRecord{
		SlNo:          slNo,
		InstitutionID: institutionID,
		PaymentCore: store.PaymentCore{
			PaymentYear:     year,
			ReceiptNoOrDate: receipt,
			PropertyTax:     12000,
			TotalAmount:     13500,
			DepartmentPaid:  "Revenue",
		},
	}
	if withBill {
		fs.bills[slNo] = store.Bill{
			SlNo:     slNo,
			Filename: "receipt.png",
			Filetype: "image/png",
			Data:     []byte("png-bytes"),
		}
	}
	return slNo
}

func login(t *testing.T, server *HTTPServer, email, password string) string {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("login as %s: expected 302, got %d", email, rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc == "/login" {
		t.Fatalf("login as %s was rejected", email)
	}
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == testCookie && cookie.Value != "" {
			return cookie.Value
		}
	}
	t.Fatalf("login as %s: no session cookie set", email)
	return ""
}

func get(server *HTTPServer, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func postForm(server *HTTPServer, path, cookie string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

// postMultipart submits a multipart form, optionally attaching a file
// under the "bill" field.
func postMultipart(t *testing.T, server *HTTPServer, path, cookie string, fields map[string]string, billName string, billData []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body strings.Builder
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if billName != "" {
		part, err := writer.CreateFormFile("bill", billName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(billData); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body.String()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func paymentForm(year int, receipt string) map[string]string {
	return map[string]string{
		"payment_year":       strconv.Itoa(year),
		"receipt_no_or_date": receipt,
		"property_tax":       "12000",
		"rebate":             "500",
		"service_tax":        "600",
		"cesses":             "100",
		"interest":           "0",
		"total_amount":       "13500",
		"department_paid":    "Revenue",
	}
}

func requireRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

// requireFlash follows up with a page load and checks the flash message
// landed there (and, being one-shot, nowhere after).
func requireFlash(t *testing.T, server *HTTPServer, cookie, page, message string) {
	t.Helper()
	rr := get(server, page, cookie)
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), message) {
		t.Fatalf("expected flash %q on %s, body=%s", message, page, string(body))
	}
}
