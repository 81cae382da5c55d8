package epub

import "testing"

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"same dir", "OEBPS/text/ch1.xhtml", "ch2.xhtml", "OEBPS/text/ch2.xhtml"},
		{"parent dir", "OEBPS/text/ch1.xhtml", "../images/pic.png", "OEBPS/images/pic.png"},
		{"subdir", "OEBPS/ch1.xhtml", "images/pic.png", "OEBPS/images/pic.png"},
		{"root level base", "content.opf", "style.css", "style.css"},
		{"url escaped", "OEBPS/ch1.xhtml", "My%20Image.png", "OEBPS/My Image.png"},
		{"escapes archive", "ch1.xhtml", "../../etc/passwd", ""},
		{"absolute", "OEBPS/ch1.xhtml", "/etc/passwd", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRelative(tt.base, tt.href); got != tt.want {
				t.Errorf("ResolveRelative(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestRelPath(t *testing.T) {
	tests := []struct {
		name    string
		fromDir string
		target  string
		want    string
	}{
		{"child", "OEBPS", "OEBPS/images/pic.png", "images/pic.png"},
		{"sibling dir", "OEBPS/text", "OEBPS/style.css", "../style.css"},
		{"same dir", "OEBPS", "OEBPS/nav.xhtml", "nav.xhtml"},
		{"from root", ".", "OEBPS/ch1.xhtml", "OEBPS/ch1.xhtml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelPath(tt.fromDir, tt.target); got != tt.want {
				t.Errorf("RelPath(%q, %q) = %q, want %q", tt.fromDir, tt.target, got, tt.want)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"OEBPS/ch1.xhtml", true},
		{"mimetype", true},
		{"./OEBPS/ch1.xhtml", true},
		{"../outside.txt", false},
		{"..", false},
		{"/etc/passwd", false},
		{"OEBPS/../../outside.txt", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.path); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
