package domain

import "testing"

func TestValidDID(t *testing.T) {
	cases := map[string]bool{
		"did:cyber:alice":      true,
		"did:iota:0xabc:key-1": true,
		"did:web:example.com":  true,
		"did:cyber:":           false,
		"cyber:alice":          false,
		"did::alice":           false,
		"did:Cyber:alice":      false,
		"did:cyber:alice bob":  false,
		"":                     false,
	}
	for input, want := range cases {
		if got := ValidDID(input); got != want {
			t.Fatalf("ValidDID(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestValidDocumentHash(t *testing.T) {
	good := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if !ValidDocumentHash(good) {
		t.Fatalf("expected %s to be valid", good)
	}
	if ValidDocumentHash(good[:63]) {
		t.Fatalf("short hash accepted")
	}
	if ValidDocumentHash("zz" + good[2:]) {
		t.Fatalf("non-hex hash accepted")
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Fatalf("category %q rejected", c)
		}
	}
	if ValidCategory("medical record") {
		t.Fatalf("categories are case-sensitive")
	}
}
