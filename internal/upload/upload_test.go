package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"testing"
)

// 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

func newUploadRequest(t *testing.T, field, filename string, data []byte) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestBillFromFormAcceptsPNG(t *testing.T) {
	body, contentType := newUploadRequest(t, "bill", "receipt.png", tinyPNG)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", contentType)

	bill, err := BillFromForm(req, "bill")
	if err != nil {
		t.Fatalf("BillFromForm: %v", err)
	}
	if bill == nil {
		t.Fatal("expected a bill")
	}
	if bill.Filename != "receipt.png" || bill.Filetype != "image/png" {
		t.Fatalf("got %q %q", bill.Filename, bill.Filetype)
	}
	if !bytes.Equal(bill.Data, tinyPNG) {
		t.Fatal("data round-trip mismatch")
	}
}

func TestBillFromFormMissingFileIsNotAnError(t *testing.T) {
	body, contentType := newUploadRequest(t, "bill", "", nil)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", contentType)

	bill, err := BillFromForm(req, "bill")
	if err != nil {
		t.Fatalf("BillFromForm: %v", err)
	}
	if bill != nil {
		t.Fatalf("expected nil bill, got %+v", bill)
	}
}

func TestBillFromFormRejectsUnknownType(t *testing.T) {
	body, contentType := newUploadRequest(t, "bill", "notes.txt", []byte("plain text, not an image"))
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", contentType)

	if _, err := BillFromForm(req, "bill"); !errors.Is(err, ErrBadType) {
		t.Fatalf("expected ErrBadType, got %v", err)
	}
}

func TestBillFromFormRejectsOversizedFile(t *testing.T) {
	big := make([]byte, MaxBillBytes+1)
	copy(big, tinyPNG)
	body, contentType := newUploadRequest(t, "bill", "huge.png", big)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", contentType)

	if _, err := BillFromForm(req, "bill"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
