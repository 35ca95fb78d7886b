package app

import (
	"bytes"
	"net/http"
	"strconv"
	"testing"

	"taxportal/api/internal/store"
)

// The bill endpoint walks bill -> payment record -> institution -> division
// before serving anything. These cases pin down who gets through.
func TestViewImageOwnershipChain(t *testing.T) {
	server, fs := newTestServer(t)
	slNo := seedPayment(fs, "INST1", 2025, "RCPT-1", true)
	path := "/view_image/" + strconv.Itoa(slNo)

	tests := []struct {
		name    string
		email   string
		home    string
		allowed bool
	}{
		{name: "admin bypasses the walk", email: "admin@example.gov", allowed: true},
		{name: "parent division matches", email: "north@example.gov", allowed: true},
		{name: "owning institution matches", email: "school@example.gov", allowed: true},
		{name: "sibling division denied", email: "south@example.gov", home: "/division", allowed: false},
		{name: "foreign institution denied", email: "clinic@example.gov", home: "/institution", allowed: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cookie := login(t, server, tc.email, testPassword)
			rr := get(server, path, cookie)

			if tc.allowed {
				if rr.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", rr.Code)
				}
				if got := rr.Header().Get("Content-Type"); got != "image/png" {
					t.Fatalf("expected image/png, got %s", got)
				}
				if rr.Body.String() != "png-bytes" {
					t.Fatal("served wrong bill payload")
				}
				return
			}
			requireRedirect(t, rr, "/home")
			requireFlash(t, server, cookie, tc.home, "Not authorized")
		})
	}
}

func TestViewImageRoundTripsUploadedBill(t *testing.T) {
	server, fs := newTestServer(t)
	cookie := login(t, server, "school@example.gov", testPassword)

	rr := postMultipart(t, server, "/new_institution_payment_details", cookie,
		paymentForm(2025, "RCPT-UP-1"), "receipt.png", testPNG)
	requireRedirect(t, rr, "/list_payment_details_in_institution")

	var slNo int
	for n := range fs.payments {
		slNo = n
	}
	if _, ok := fs.bills[slNo]; !ok {
		t.Fatal("upload did not attach a bill to the new record")
	}

	rr = get(server, "/view_image/"+strconv.Itoa(slNo), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %s", got)
	}
	if !bytes.Equal(rr.Body.Bytes(), testPNG) {
		t.Fatal("served bill does not match the uploaded bytes")
	}

	otherCookie := login(t, server, "clinic@example.gov", testPassword)
	rr = get(server, "/view_image/"+strconv.Itoa(slNo), otherCookie)
	requireRedirect(t, rr, "/home")
	requireFlash(t, server, otherCookie, "/institution", "Not authorized")
}

func TestViewImageStagedBillsAreAdminOnly(t *testing.T) {
	server, fs := newTestServer(t)
	fs.staged[500] = store.StagedRecord{SlNo: 500, PropertyName: "Old Mill"}
	fs.stagedBills[500] = store.Bill{SlNo: 500, Filename: "staged.png", Filetype: "image/png", Data: []byte("staged-bytes")}

	adminCookie := login(t, server, "admin@example.gov", testPassword)
	rr := get(server, "/view_image/500?type=admin", adminCookie)
	if rr.Code != http.StatusOK || rr.Body.String() != "staged-bytes" {
		t.Fatalf("admin should see the staged bill, got %d", rr.Code)
	}

	divisionCookie := login(t, server, "north@example.gov", testPassword)
	rr = get(server, "/view_image/500?type=admin", divisionCookie)
	requireRedirect(t, rr, "/home")
	requireFlash(t, server, divisionCookie, "/division", "Not authorized")
}

func TestViewImageMissingBill(t *testing.T) {
	server, _ := newTestServer(t)
	cookie := login(t, server, "admin@example.gov", testPassword)

	rr := get(server, "/view_image/424242", cookie)
	requireRedirect(t, rr, "/home")
	requireFlash(t, server, cookie, "/admin", "No image found")
}
