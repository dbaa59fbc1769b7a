package beamer

import (
	"io"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// RenderNotes renders markdown speaker notes as LaTeX suitable for a \note{} block.
func RenderNotes(md string) string {
	out := blackfriday.Run([]byte(md),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(&latexRenderer{}),
	)
	return strings.TrimSpace(string(out))
}

// latexRenderer is a blackfriday.Renderer producing the small LaTeX subset
// Beamer notes need.
type latexRenderer struct{}

func (r *latexRenderer) RenderHeader(w io.Writer, ast *blackfriday.Node) {}
func (r *latexRenderer) RenderFooter(w io.Writer, ast *blackfriday.Node) {}

func (r *latexRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.Text:
		io.WriteString(w, Escape(string(node.Literal)))
	case blackfriday.Softbreak:
		io.WriteString(w, "\n")
	case blackfriday.Hardbreak:
		io.WriteString(w, "\\\\\n")
	case blackfriday.Emph:
		wrap(w, entering, `\emph{`, `}`)
	case blackfriday.Strong:
		wrap(w, entering, `\textbf{`, `}`)
	case blackfriday.Heading:
		wrap(w, entering, `\textbf{`, "}\n\n")
	case blackfriday.Code:
		io.WriteString(w, `\texttt{`+Escape(string(node.Literal))+`}`)
	case blackfriday.CodeBlock:
		io.WriteString(w, "\\begin{verbatim}\n"+string(node.Literal)+"\\end{verbatim}\n")
	case blackfriday.Link:
		wrap(w, entering, `\href{`+escapeURL(string(node.LinkData.Destination))+`}{`, `}`)
	case blackfriday.Paragraph:
		if !entering {
			if node.Parent != nil && node.Parent.Type == blackfriday.Item {
				io.WriteString(w, "\n")
			} else {
				io.WriteString(w, "\n\n")
			}
		}
	case blackfriday.List:
		env := "itemize"
		if node.ListFlags&blackfriday.ListTypeOrdered != 0 {
			env = "enumerate"
		}
		wrap(w, entering, `\begin{`+env+"}\n", `\end{`+env+"}\n")
	case blackfriday.Item:
		if entering {
			io.WriteString(w, `\item `)
		}
	case blackfriday.HorizontalRule:
		io.WriteString(w, "\\medskip\n")
	case blackfriday.HTMLBlock, blackfriday.HTMLSpan, blackfriday.Image:
		return blackfriday.SkipChildren
	}
	return blackfriday.GoToNext
}

func wrap(w io.Writer, entering bool, open, close string) {
	if entering {
		io.WriteString(w, open)
	} else {
		io.WriteString(w, close)
	}
}

func escapeURL(u string) string {
	return strings.NewReplacer(`%`, `\%`, `#`, `\#`).Replace(u)
}
