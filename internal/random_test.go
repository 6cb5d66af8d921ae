package internal

import "testing"

func TestRandomString(t *testing.T) {
	s, err := RandomString(64)
	if err != nil {
		t.Fatalf("random string: %v", err)
	}
	if len(s) != 64 {
		t.Fatalf("expected 64 chars, got %d", len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			t.Fatalf("unexpected character %q", c)
		}
	}
	other, _ := RandomString(64)
	if other == s {
		t.Fatal("expected distinct values")
	}
	if _, err := RandomString(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestDeviceFingerprint(t *testing.T) {
	a := DeviceFingerprint("Mozilla/5.0")
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", a)
	}
	if a != DeviceFingerprint("Mozilla/5.0") {
		t.Fatal("fingerprint must be stable")
	}
	if a == DeviceFingerprint("curl/8.0") {
		t.Fatal("different agents must differ")
	}
}
