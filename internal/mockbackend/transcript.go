package mockbackend

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	pageLines = 52
	lineWidth = 90
)

// transcriptLines renders the conversation as plain lines.
func transcriptLines(sess *panelSession) []string {
	lines := []string{
		"Panel Session Transcript",
		"Company: " + sess.Company,
		"Presentation: " + sess.ReportType,
		"Budget: " + sess.Budget.String(),
		"",
	}
	for i, q := range sess.Questions {
		speaker := q.Executive
		if q.Name != "" {
			speaker = fmt.Sprintf("%s (%s)", q.Name, q.Executive)
		}
		lines = append(lines, wrap(speaker+": "+q.Question, lineWidth)...)
		if i < len(sess.Answers) {
			lines = append(lines, wrap("Presenter: "+sess.Answers[i].Text, lineWidth)...)
		}
		lines = append(lines, "")
	}
	return lines
}

// transcriptPDF builds a single-page PDF of the transcript.
func transcriptPDF(sess *panelSession) []byte {
	lines := transcriptLines(sess)
	if len(lines) > pageLines {
		lines = append(lines[:pageLines-1], "...")
	}

	var content bytes.Buffer
	content.WriteString("BT\n/F1 10 Tf\n14 TL\n50 760 Td\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", pdfEscape(l))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

func pdfEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 32 || r > 126:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}
