package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGenerateTempPasswordIsReadable(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := security.GenerateTempPassword(16)
		if err != nil {
			t.Fatalf("GenerateTempPassword: %v", err)
		}
		if len(pw) != 16 {
			t.Fatalf("length = %d, want 16", len(pw))
		}
		if strings.ContainsAny(pw, "0O1lI") {
			t.Fatalf("temporary password %q contains an ambiguous glyph", pw)
		}
		seen[pw] = true
	}
	if len(seen) < 20 {
		t.Fatal("temporary passwords repeated")
	}

	if _, err := security.GenerateTempPassword(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestVerifyPasswordUsesEmbeddedParams(t *testing.T) {
	weak := config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 0, ArgonParallelism: 0, ArgonSaltLen: 1, ArgonKeyLen: 1}

	hash, err := security.HashPassword("counter-pin-4421", weak)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	// out-of-range settings are clamped before they are encoded
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8,t=1,p=1$") {
		t.Fatalf("unexpected hash header %q", hash)
	}

	ok, err := security.VerifyPassword("counter-pin-4421", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword = %v, %v", ok, err)
	}

	if _, err := security.HashPassword("", weak); err == nil {
		t.Fatal("expected error for empty password")
	}
}
