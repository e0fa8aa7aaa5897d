package cryptoutil

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenPrivKey()
	if err != nil {
		t.Fatalf("GenPrivKey: %v", err)
	}
	addr, err := PubFromPriv(priv)
	if err != nil {
		t.Fatalf("PubFromPriv: %v", err)
	}
	if !IsValidAddress(addr) {
		t.Fatalf("derived address %q is not valid", addr)
	}

	sig, err := Sign(priv, "hello world")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(addr, "hello world", sig) {
		t.Fatalf("Verify rejected a genuine signature")
	}
	if Verify(addr, "tampered message", sig) {
		t.Fatalf("Verify accepted a signature over a different message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1, _ := GenPrivKey()
	priv2, _ := GenPrivKey()
	addr2, _ := PubFromPriv(priv2)

	sig, err := Sign(priv1, "msg")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify(addr2, "msg", sig) {
		t.Fatalf("Verify accepted a signature from the wrong key")
	}
}

func TestIsValidAddress(t *testing.T) {
	priv, _ := GenPrivKey()
	addr, _ := PubFromPriv(priv)

	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"genuine", addr, true},
		{"too short", addr[:len(addr)-2], false},
		{"wrong prefix", "05" + addr[2:], false},
		{"non hex", "zz" + addr[2:], false},
		{"empty", "", false},
	}
	for _, c := range cases {
		if got := IsValidAddress(c.addr); got != c.want {
			t.Errorf("%s: IsValidAddress() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestLeadingZeroBits(t *testing.T) {
	cases := []struct {
		hex  string
		bits int
	}{
		{"ff", 0},
		{"7f", 1},
		{"0f", 4},
		{"00ff", 8},
		{"0000", 16},
	}
	for _, c := range cases {
		if got := LeadingZeroBits(c.hex); got != c.bits {
			t.Errorf("LeadingZeroBits(%q) = %d, want %d", c.hex, got, c.bits)
		}
	}
}

func TestHexToBinary(t *testing.T) {
	bin, err := HexToBinary("a3")
	if err != nil {
		t.Fatalf("HexToBinary: %v", err)
	}
	if bin != "10100011" {
		t.Errorf("HexToBinary(%q) = %q, want %q", "a3", bin, "10100011")
	}
}

func TestSha256HexString(t *testing.T) {
	got := Sha256HexString("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b85"
	if got != want {
		t.Errorf("Sha256HexString(\"\") = %q, want %q", got, want)
	}
}
