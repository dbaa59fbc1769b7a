package beamer

import (
	"strings"
	"testing"
)

func TestRenderNotes(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want []string
	}{
		{"emphasis", "Be *calm* and **clear**", []string{`Be \emph{calm} and \textbf{clear}`}},
		{"list", "Points:\n\n- one\n- two", []string{"\\begin{itemize}\n", `\item one`, `\item two`, `\end{itemize}`}},
		{"ordered", "1. first\n2. second", []string{`\begin{enumerate}`, `\item first`, `\end{enumerate}`}},
		{"code", "run `go test`", []string{`\texttt{go test}`}},
		{"link", "[docs](https://example.com/a#b)", []string{`\href{https://example.com/a\#b}{docs}`}},
		{"escaped", "50% of $x", []string{`50\% of \$x`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderNotes(tt.md)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderNotes(%q) = %q, missing %q", tt.md, got, w)
				}
			}
		})
	}
}

func TestRenderNotesDropsHTML(t *testing.T) {
	got := RenderNotes("text <b>bold</b>")
	if strings.Contains(got, "<b>") {
		t.Errorf("raw HTML kept: %q", got)
	}
}

func TestRenderNotesEmpty(t *testing.T) {
	if got := RenderNotes(""); got != "" {
		t.Errorf("RenderNotes(\"\") = %q", got)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a\b`, `a\textbackslash{}b`},
		{"{x}", `\{x\}`},
		{"R&D #1", `R\&D \#1`},
		{"x^2 ~ y", `x\textasciicircum{}2 \textasciitilde{} y`},
		{"e\u0301tude", "\u00e9tude"},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
