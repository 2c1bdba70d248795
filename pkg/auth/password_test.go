package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("sw0rdfish")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "sw0rdfish" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("sw0rdfish", hash) {
		t.Fatal("expected correct password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestCheckPasswordRejectsGarbageHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to fail verification")
	}
}
