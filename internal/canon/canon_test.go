package canon

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"crlf", "one\r\ntwo\r", "one\ntwo"},
		{"nbsp", "a\u00a0b", "a b"},
		{"bidi marks", "a\u200eb\u200fc\u202ad\u2066e", "abcde"},
		{"trailing spaces", "line one   \nline two\t\n", "line one\nline two\n"},
		{"nfc", "e\u0301", "\u00e9"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Canonicalize(tc.in); got != tc.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"hello\r\nworld  \n",
		"a\u00a0b\u200ec",
		"e\u0301 accent\t\n",
		"already canonical",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		if twice := Canonicalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("SHA256Hex = %s, want %s", got, want)
	}
	if len(SHA256Hex("")) != 64 {
		t.Fatal("hash must be 64 hex chars")
	}
}
