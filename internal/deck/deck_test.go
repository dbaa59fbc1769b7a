package deck

import "testing"

func TestParagraphIndentLevel(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"", 0},
		{"0", 0},
		{"2", 2},
		{" 3 ", 3},
		{"x", 0},
		{"-1", 0},
		{"1.5", 0},
	}
	for _, tt := range tests {
		p := Paragraph{Level: tt.level}
		if got := p.IndentLevel(); got != tt.want {
			t.Errorf("IndentLevel(%q) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestParagraphText(t *testing.T) {
	p := Paragraph{Runs: []string{"Hello", ", ", "world"}}
	if got := p.Text(); got != "Hello, world" {
		t.Errorf("Text() = %q", got)
	}
	if got := (Paragraph{}).Text(); got != "" {
		t.Errorf("empty Text() = %q", got)
	}
}

func TestSlideHidden(t *testing.T) {
	yes, no := true, false
	if (&Slide{}).Hidden() {
		t.Error("slide without show attribute should be visible")
	}
	if (&Slide{Show: &yes}).Hidden() {
		t.Error("show=1 should be visible")
	}
	if !(&Slide{Show: &no}).Hidden() {
		t.Error("show=0 should be hidden")
	}
}

func TestShapeIsTitle(t *testing.T) {
	for ph, want := range map[string]bool{
		PlaceholderTitle:         true,
		PlaceholderCenteredTitle: true,
		PlaceholderSubtitle:      false,
		PlaceholderBody:          false,
		"":                       false,
	} {
		if got := (Shape{Placeholder: ph}).IsTitle(); got != want {
			t.Errorf("IsTitle(%q) = %v, want %v", ph, got, want)
		}
	}
}

func TestCountVisible(t *testing.T) {
	no := false
	slides := []*Slide{{}, {Show: &no}, {}}
	if got := CountVisible(slides, false); got != 2 {
		t.Errorf("CountVisible(false) = %d, want 2", got)
	}
	if got := CountVisible(slides, true); got != 3 {
		t.Errorf("CountVisible(true) = %d, want 3", got)
	}
}
