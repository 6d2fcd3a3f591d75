package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetToken(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken("abc.def.ghij"); err != nil {
		t.Fatalf("SetToken() failed: %v", err)
	}

	got, err := GetToken()
	if err != nil {
		t.Fatalf("GetToken() failed: %v", err)
	}
	if got != "abc.def.ghij" {
		t.Errorf("GetToken() = %q, want %q", got, "abc.def.ghij")
	}
}

func TestSetTokenEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken(""); err == nil {
		t.Error("SetToken(\"\") should return an error")
	}
}

func TestGetTokenNotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteToken()

	if _, err := GetToken(); err != ErrNotFound {
		t.Errorf("GetToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteToken(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken("tok"); err != nil {
		t.Fatalf("SetToken() failed: %v", err)
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken() failed: %v", err)
	}
	if _, err := GetToken(); err != ErrNotFound {
		t.Errorf("After DeleteToken(), GetToken() error = %v, want %v", err, ErrNotFound)
	}
	if err := DeleteToken(); err != ErrNotFound {
		t.Errorf("second DeleteToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestResolveToken(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteToken()

	if got, err := ResolveToken("from-env"); err != nil || got != "from-env" {
		t.Errorf("ResolveToken(env) = %q, %v", got, err)
	}
	if _, err := ResolveToken(""); err == nil {
		t.Error("ResolveToken with nothing stored should fail")
	}

	if err := SetToken("from-keyring"); err != nil {
		t.Fatal(err)
	}
	if got, err := ResolveToken(""); err != nil || got != "from-keyring" {
		t.Errorf("ResolveToken(keyring) = %q, %v", got, err)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("abc"); got != "****" {
		t.Errorf("Mask(short) = %q", got)
	}
	if got := Mask("abcdefgh"); got != "****efgh" {
		t.Errorf("Mask() = %q", got)
	}
}
