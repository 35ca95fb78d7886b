package app

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func TestInstitutionPaymentLifecycle(t *testing.T) {
	server, fs := newTestServer(t)
	cookie := login(t, server, "school@example.gov", testPassword)

	rr := postMultipart(t, server, "/new_institution_payment_details", cookie,
		paymentForm(2025, "RCPT-2025-01"), "", nil)
	requireRedirect(t, rr, "/list_payment_details_in_institution")

	if len(fs.payments) != 1 {
		t.Fatalf("expected 1 payment record, got %d", len(fs.payments))
	}
	var slNo int
	for n, p := range fs.payments {
		slNo = n
		if p.InstitutionID != "INST1" {
			t.Fatalf("record attributed to %s, want INST1", p.InstitutionID)
		}
		if p.PaymentYear != 2025 || p.ReceiptNoOrDate != "RCPT-2025-01" {
			t.Fatalf("unexpected record contents: %+v", p)
		}
	}

	rr = get(server, "/list_payment_details_in_institution", cookie)
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "RCPT-2025-01") {
		t.Fatalf("listing does not show the new record: %s", string(body))
	}

	form := paymentForm(2025, "RCPT-2025-01-rev")
	form["sl_no"] = strconv.Itoa(slNo)
	rr = postMultipart(t, server, "/modify_institution_payment_details", cookie, form, "", nil)
	requireRedirect(t, rr, "/list_payment_details_in_institution")
	if got := fs.payments[slNo].ReceiptNoOrDate; got != "RCPT-2025-01-rev" {
		t.Fatalf("modify did not stick, receipt=%s", got)
	}

	rr = get(server, "/delete_institution_payment_details?sl_no="+strconv.Itoa(slNo), cookie)
	requireRedirect(t, rr, "/list_payment_details_in_institution")
	if len(fs.payments) != 0 {
		t.Fatalf("expected record deleted, still have %d", len(fs.payments))
	}
}

func TestDuplicateYearAndReceiptAreFlashed(t *testing.T) {
	server, fs := newTestServer(t)
	seedPayment(fs, "INST1", 2025, "RCPT-1", false)
	cookie := login(t, server, "school@example.gov", testPassword)

	rr := postMultipart(t, server, "/new_institution_payment_details", cookie,
		paymentForm(2025, "RCPT-other"), "", nil)
	requireRedirect(t, rr, "/new_institution_payment_details")
	requireFlash(t, server, cookie, "/new_institution_payment_details", "Year already exists")

	rr = postMultipart(t, server, "/new_institution_payment_details", cookie,
		paymentForm(2024, "RCPT-1"), "", nil)
	requireRedirect(t, rr, "/new_institution_payment_details")
	requireFlash(t, server, cookie, "/new_institution_payment_details", "Receipt number already exists")

	if len(fs.payments) != 1 {
		t.Fatalf("duplicate submissions must not insert, have %d records", len(fs.payments))
	}
}

func TestCrossTenantPaymentAccessDenied(t *testing.T) {
	server, fs := newTestServer(t)
	foreign := seedPayment(fs, "INST2", 2025, "RCPT-9", false)
	cookie := login(t, server, "school@example.gov", testPassword)

	rr := get(server, "/modify_institution_payment_details?sl_no="+strconv.Itoa(foreign), cookie)
	requireRedirect(t, rr, "/list_payment_details_in_institution")
	requireFlash(t, server, cookie, "/list_payment_details_in_institution", "Not authorized")

	rr = get(server, "/delete_institution_payment_details?sl_no="+strconv.Itoa(foreign), cookie)
	requireRedirect(t, rr, "/list_payment_details_in_institution")
	if _, ok := fs.payments[foreign]; !ok {
		t.Fatal("cross-tenant delete must not remove the record")
	}
}

func TestDivisionListingIsScopedAndFilterable(t *testing.T) {
	server, fs := newTestServer(t)
	seedPayment(fs, "INST1", 2024, "RCPT-A", false)
	seedPayment(fs, "INST1", 2025, "RCPT-B", false)
	seedPayment(fs, "INST2", 2025, "RCPT-C", false)
	cookie := login(t, server, "north@example.gov", testPassword)

	rr := get(server, "/list_payment_details_in_division", cookie)
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "RCPT-A") || !strings.Contains(string(body), "RCPT-B") {
		t.Fatalf("division listing missing own records: %s", string(body))
	}
	if strings.Contains(string(body), "RCPT-C") {
		t.Fatal("division listing leaked another division's record")
	}

	rr = get(server, "/list_payment_details_in_division?selected_year=2025", cookie)
	body, _ = io.ReadAll(rr.Body)
	if strings.Contains(string(body), "RCPT-A") {
		t.Fatal("year filter did not exclude other years")
	}
	if !strings.Contains(string(body), "RCPT-B") {
		t.Fatal("year filter dropped the matching record")
	}
}

func TestApprovalIsOneWay(t *testing.T) {
	server, fs := newTestServer(t)
	slNo := seedPayment(fs, "INST1", 2025, "RCPT-1", false)
	cookie := login(t, server, "north@example.gov", testPassword)

	rr := get(server, "/approve_institution_payment_details?sl_no="+strconv.Itoa(slNo), cookie)
	requireRedirect(t, rr, "/list_payment_details_in_division")
	if !fs.payments[slNo].ApprovalStatus {
		t.Fatal("record not approved")
	}

	// Approving again is harmless and the flag never flips back.
	rr = get(server, "/approve_institution_payment_details?sl_no="+strconv.Itoa(slNo), cookie)
	requireRedirect(t, rr, "/list_payment_details_in_division")
	if !fs.payments[slNo].ApprovalStatus {
		t.Fatal("approval must be permanent")
	}
}

func TestApprovalScopedToOwningDivision(t *testing.T) {
	server, fs := newTestServer(t)
	slNo := seedPayment(fs, "INST2", 2025, "RCPT-1", false)
	cookie := login(t, server, "north@example.gov", testPassword)

	rr := get(server, "/approve_institution_payment_details?sl_no="+strconv.Itoa(slNo), cookie)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if fs.payments[slNo].ApprovalStatus {
		t.Fatal("foreign division must not approve the record")
	}
}

func TestModifyPreservesApproval(t *testing.T) {
	server, fs := newTestServer(t)
	slNo := seedPayment(fs, "INST1", 2025, "RCPT-1", false)
	record := fs.payments[slNo]
	record.ApprovalStatus = true
	fs.payments[slNo] = record

	cookie := login(t, server, "school@example.gov", testPassword)
	form := paymentForm(2025, "RCPT-1")
	form["sl_no"] = strconv.Itoa(slNo)
	form["total_amount"] = "99999"
	rr := postMultipart(t, server, "/modify_institution_payment_details", cookie, form, "", nil)
	requireRedirect(t, rr, "/list_payment_details_in_institution")

	got := fs.payments[slNo]
	if got.TotalAmount != 99999 {
		t.Fatalf("modify did not apply, total=%d", got.TotalAmount)
	}
	if !got.ApprovalStatus {
		t.Fatal("modify must not reset approval")
	}
}
