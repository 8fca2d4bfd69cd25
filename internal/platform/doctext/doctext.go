package doctext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
)

const defaultMaxBytes = 20 << 20

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string       { return fmt.Sprintf("download: status=%d", e.StatusCode) }
func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// Download fetches a template file. A 429 surfaces as *StatusError so callers
// can apply the shared retry policy.
func Download(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, string, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(b)) > maxBytes {
		return nil, "", fmt.Errorf("download: file exceeds %d bytes", maxBytes)
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// Extract returns plain text for a pdf, html or text document. fileType may
// be an extension ("pdf") or a MIME type.
func Extract(data []byte, fileType string) (string, error) {
	switch kind(fileType, data) {
	case "pdf":
		return extractPDF(data)
	case "html":
		return extractHTML(data)
	case "text":
		return collapseWhitespace(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported template type %q", fileType)
	}
}

func kind(fileType string, data []byte) string {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	switch {
	case strings.Contains(ft, "pdf"):
		return "pdf"
	case strings.Contains(ft, "html") || ft == "htm":
		return "html"
	case strings.HasPrefix(ft, "text/") || ft == "txt" || ft == "text" || ft == "md":
		return "text"
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return "pdf"
	}
	return ""
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("html: %w", err)
	}
	doc.Find("script, style").Remove()
	var parts []string
	doc.Find("h1,h2,h3,p,li,label,td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapseWhitespace(doc.Text()), nil
	}
	return collapseWhitespace(strings.Join(parts, "\n")), nil
}

var (
	spaceRX = regexp.MustCompile(`[ \t]+`)
	blankRX = regexp.MustCompile(`\n{3,}`)
)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = spaceRX.ReplaceAllString(s, " ")
	s = blankRX.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
