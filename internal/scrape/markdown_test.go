package scrape

import "testing"

func TestFirstHeading(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "leading heading",
			markdown: "# Quantum Networking Advances\n\nBody text here.",
			want:     "Quantum Networking Advances",
		},
		{
			name:     "heading after preamble",
			markdown: "Some navigation junk\n\n# Real Title\n\nBody.",
			want:     "Real Title",
		},
		{
			name:     "deeper heading levels ignored",
			markdown: "## Section\n\nBody.",
			want:     "",
		},
		{
			name:     "no heading",
			markdown: "Just a paragraph.",
			want:     "",
		},
		{
			name:     "empty",
			markdown: "",
			want:     "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := firstHeading(tc.markdown); got != tc.want {
				t.Fatalf("firstHeading = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFirstParagraph(t *testing.T) {
	t.Parallel()

	markdown := "# Title\n\nFirst paragraph line one\ncontinues on line two.\n\nSecond paragraph."

	got := firstParagraph(markdown)
	want := "First paragraph line one continues on line two."
	if got != want {
		t.Fatalf("firstParagraph = %q, want %q", got, want)
	}
}

func TestFirstParagraphSkipsHeadingsAndFences(t *testing.T) {
	t.Parallel()

	markdown := "# Title\n\n## Subtitle\n\n```\ncode block\n```\n\nActual text."

	if got := firstParagraph(markdown); got != "Actual text." {
		t.Fatalf("firstParagraph = %q, want %q", got, "Actual text.")
	}
}
