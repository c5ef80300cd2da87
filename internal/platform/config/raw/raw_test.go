package raw

import "testing"

func TestGet(t *testing.T) {
	c := New().Prefix("RAWT_")
	t.Setenv("RAWT_NAME", "  citewatch ")
	if got := c.Get("NAME", "def"); got != "citewatch" {
		t.Fatalf("Get = %q, want %q", got, "citewatch")
	}
	if got := c.Get("MISSING", "def"); got != "def" {
		t.Fatalf("Get default = %q, want %q", got, "def")
	}
}

func TestPrefixNesting(t *testing.T) {
	c := New().Prefix("A_").Prefix("B_")
	t.Setenv("A_B_K", "v")
	if got := c.Get("K", ""); got != "v" {
		t.Fatalf("nested Get = %q, want %q", got, "v")
	}
}

func TestGetBool(t *testing.T) {
	c := New().Prefix("RAWB_")
	for _, v := range []string{"1", "true", "YES"} {
		t.Setenv("RAWB_ON", v)
		if !c.GetBool("ON", false) {
			t.Fatalf("GetBool(%q) = false, want true", v)
		}
	}
	t.Setenv("RAWB_OFF", "0")
	if c.GetBool("OFF", true) {
		t.Fatalf("GetBool(0) = true, want false")
	}
	if !c.GetBool("MISSING", true) {
		t.Fatalf("GetBool default = false, want true")
	}
}

func TestGetInt(t *testing.T) {
	c := New().Prefix("RAWI_")
	t.Setenv("RAWI_N", " 42 ")
	if got := c.GetInt("N", 7); got != 42 {
		t.Fatalf("GetInt = %d, want 42", got)
	}
	t.Setenv("RAWI_NEG", "-3")
	if got := c.GetInt("NEG", 7); got != -3 {
		t.Fatalf("GetInt negative = %d, want -3", got)
	}
	t.Setenv("RAWI_BAD", "x9")
	if got := c.GetInt("BAD", 7); got != 7 {
		t.Fatalf("GetInt invalid = %d, want default 7", got)
	}
}
