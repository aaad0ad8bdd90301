// Package testutil holds fixtures shared by package tests: generated PDFs
// and a deterministic embedder that needs no model server.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// WritePDF writes a minimal single-font PDF with one text page per entry
// of pages. An empty title leaves the info dictionary out.
func WritePDF(t testing.TB, path, title string, pages ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, BuildPDF(title, pages...), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
}

// BuildPDF renders the bytes written by WritePDF
func BuildPDF(title string, pages ...string) []byte {
	// 1 catalog, 2 page tree, 3 font, 4 info, then page/content pairs
	numObjects := 4 + 2*len(pages)
	objects := make([]string, numObjects+1)

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects[1] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	objects[3] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	objects[4] = fmt.Sprintf("<< /Title (%s) /Producer (testutil) >>", pdfEscaper.Replace(title))

	for i, text := range pages {
		pageID, contentID := 5+2*i, 6+2*i
		objects[pageID] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentID)
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", pdfEscaper.Replace(text))
		objects[contentID] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, numObjects+1)
	for id := 1; id <= numObjects; id++ {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, objects[id])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", numObjects+1)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= numObjects; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	trailer := fmt.Sprintf("<< /Size %d /Root 1 0 R", numObjects+1)
	if title != "" {
		trailer += " /Info 4 0 R"
	}
	fmt.Fprintf(&buf, "trailer\n%s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}
