package exchange

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// Document is the data handed to the HTML export template.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Entries     []DocumentEntry
}

// DocumentEntry is one term section in the exported document.
type DocumentEntry struct {
	Term       string
	Definition string
	Example    string
	Sources    []string
}

var documentTmpl = template.Must(template.New("glossary").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 48em; margin: 2em auto; padding: 0 1em; }
h1 { border-bottom: 2px solid #333; padding-bottom: .3em; }
dt { font-weight: bold; margin-top: 1.2em; font-size: 1.1em; }
dd { margin-left: 0; }
.example { font-style: italic; color: #444; }
.sources { font-size: .85em; color: #666; }
.stamp { font-size: .8em; color: #888; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="stamp">Generated {{.GeneratedAt.Format "2006-01-02 15:04"}} &mdash; {{len .Entries}} terms</p>
<dl>
{{range .Entries}}<dt>{{.Term}}</dt>
<dd>
{{- if .Definition}}<p>{{.Definition}}</p>{{end}}
{{- if .Example}}<p class="example">{{.Example}}</p>{{end}}
{{- if .Sources}}<p class="sources">Sources: {{range $i, $s := .Sources}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
</dd>
{{end}}</dl>
</body>
</html>
`))

// WriteDocument renders the glossary as a standalone HTML document. Entries
// are emitted in the order given; callers pass them sorted by canonical term.
func WriteDocument(w io.Writer, doc Document) error {
	if doc.Title == "" {
		doc.Title = "Glossary"
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
	if err := documentTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}
