package internal

import "testing"

// FuzzDeviceFingerprint checks fingerprints are fixed-width hex and deterministic.
func FuzzDeviceFingerprint(f *testing.F) {
	f.Add("")
	f.Add("Mozilla/5.0 (X11; Linux x86_64)")
	f.Add("\x00\xff\n")

	f.Fuzz(func(t *testing.T, ua string) {
		fp := DeviceFingerprint(ua)
		if len(fp) != 16 {
			t.Fatalf("fingerprint length %d", len(fp))
		}
		for _, c := range fp {
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				t.Fatalf("non-hex fingerprint %q", fp)
			}
		}
		if DeviceFingerprint(ua) != fp {
			t.Fatal("fingerprint not deterministic")
		}
	})
}
