package dkim

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestSignAddsSignatureHeader(t *testing.T) {
	kp, err := GenerateKey("gigpost.io", "mail")
	if err != nil {
		t.Fatal(err)
	}

	signer := NewSigner(kp.PrivateKey, "gigpost.io", "mail")

	message := []byte("From: noreply@gigpost.io\r\n" +
		"To: someone@example.org\r\n" +
		"Subject: Launch\r\n" +
		"\r\n" +
		"Doors open at eight.\r\n")

	signed, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if !bytes.Contains(signed, []byte("DKIM-Signature:")) {
		t.Error("signed message missing DKIM-Signature header")
	}
	if !bytes.Contains(signed, []byte("Doors open at eight.")) {
		t.Error("signed message lost the original body")
	}

	signedStr := string(signed)
	if !strings.Contains(signedStr, "d=gigpost.io") {
		t.Error("signature missing domain tag")
	}
	if !strings.Contains(signedStr, "s=mail") {
		t.Error("signature missing selector tag")
	}
}

func TestSignerFromSavedKey(t *testing.T) {
	tmpDir := t.TempDir()

	kp, err := GenerateKey("gigpost.io", "mail")
	if err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(tmpDir, "dkim.key")
	if err := kp.SavePrivateKey(keyPath); err != nil {
		t.Fatal(err)
	}

	signer, err := NewSignerFromFile(keyPath, "gigpost.io", "mail")
	if err != nil {
		t.Fatalf("NewSignerFromFile() error = %v", err)
	}
	if signer.Domain() != "gigpost.io" || signer.Selector() != "mail" {
		t.Errorf("Domain/Selector = %q/%q", signer.Domain(), signer.Selector())
	}

	if _, err := NewSignerFromFile("/nonexistent/key.pem", "gigpost.io", "mail"); err == nil {
		t.Error("expected error for missing key file")
	}
}

func TestDNSRecord(t *testing.T) {
	kp, err := GenerateKey("gigpost.io", "mail")
	if err != nil {
		t.Fatal(err)
	}

	if got := kp.DNSName(); got != "mail._domainkey.gigpost.io" {
		t.Errorf("DNSName() = %q", got)
	}
	record := kp.DNSRecord()
	if !strings.HasPrefix(record, "v=DKIM1; k=rsa; p=") {
		t.Errorf("DNSRecord() = %q, want DKIM1 TXT content", record)
	}
}
