package content

import "testing"

func newTestTransformer() *Transformer {
	return NewTransformer("", "owner/repo", "main", "posts")
}

func TestRewrite(t *testing.T) {
	tr := newTestTransformer()
	const base = "https://raw.githubusercontent.com/owner/repo/main/posts/my-post/assets/"

	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain text", "see assets/x.png", "see " + base + "x.png"},
		{"markdown image", "![alt](assets/img/a.png)", "![alt](" + base + "img/a.png)"},
		{"dot slash", "![alt](./assets/a.png)", "![alt](" + base + "a.png)"},
		{"html attribute", `<img src="assets/a.png">`, `<img src="` + base + `a.png">`},
		{"start of body", "assets/a.png is here", base + "a.png is here"},
		{"multiple", "assets/a.png\nassets/b.png", base + "a.png\n" + base + "b.png"},
		{"bare prefix", "the assets/ folder", "the assets/ folder"},
		{"inside word", "myassets/a.png", "myassets/a.png"},
		{"parent dir", "../assets/a.png", "../assets/a.png"},
		{"no assets", "nothing to do", "nothing to do"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Rewrite(tt.body, "my-post"); got != tt.want {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestRewrite_SecondApplicationIsNoop(t *testing.T) {
	tr := newTestTransformer()
	once := tr.Rewrite("![a](assets/a.png) and assets/b.pdf", "p")
	twice := tr.Rewrite(once, "p")
	if once != twice {
		t.Errorf("second rewrite changed body:\n once  %q\n twice %q", once, twice)
	}
}

func TestNewTransformer_TrimsSlashes(t *testing.T) {
	tr := NewTransformer("https://raw.example.com/", "/o/r/", "dev", "/blog/posts/")
	got := tr.AssetURL("s", "assets/a.png")
	want := "https://raw.example.com/o/r/dev/blog/posts/s/assets/a.png"
	if got != want {
		t.Errorf("AssetURL = %q, want %q", got, want)
	}
}
