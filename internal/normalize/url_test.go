package normalize

import "testing"

func TestURLStripsQueryAndFragment(t *testing.T) {
	t.Parallel()

	got := URL("https://a.example/p?x=1#frag")
	if got.Value != "https://a.example/p" {
		t.Fatalf("unexpected value: %q", got.Value)
	}
	if !got.HadQuery {
		t.Fatal("expected HadQuery to be true")
	}
}

func TestURLWithoutQuery(t *testing.T) {
	t.Parallel()

	got := URL(" https://a.example/p ")
	if got.Value != "https://a.example/p" {
		t.Fatalf("unexpected value: %q", got.Value)
	}
	if got.HadQuery {
		t.Fatal("expected HadQuery to be false")
	}
}

func TestURLRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "not a url", "ftp://a.example/p", "/relative/path", "https://"} {
		got := URL(raw)
		if got.Value != "" || got.HadQuery {
			t.Fatalf("URL(%q) = %+v, want zero value", raw, got)
		}
	}
}

func TestURLLowercasesHostAndStripsDefaultPort(t *testing.T) {
	t.Parallel()

	got := URL("HTTPS://News.Example:443/Path")
	if got.Value != "https://news.example/Path" {
		t.Fatalf("unexpected value: %q", got.Value)
	}
	got = URL("http://a.example:80/p")
	if got.Value != "http://a.example/p" {
		t.Fatalf("unexpected value: %q", got.Value)
	}
	got = URL("http://a.example:8080/p")
	if got.Value != "http://a.example:8080/p" {
		t.Fatalf("unexpected value: %q", got.Value)
	}
}

func TestURLKeepsDistinctCanonicalForms(t *testing.T) {
	t.Parallel()

	// Trailing slash, scheme, and host variants stay distinct on purpose;
	// duplicate detection compares the canonical string exactly.
	a := URL("https://a.example/p")
	b := URL("https://a.example/p/")
	c := URL("http://a.example/p")
	if a.Value == b.Value || a.Value == c.Value {
		t.Fatalf("expected distinct canonical forms: %q %q %q", a.Value, b.Value, c.Value)
	}
}
