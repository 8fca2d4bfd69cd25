package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ListingData is whatever could be recovered from a listing page. Every
// field is optional.
type ListingData struct {
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zipCode"`
	Price        int64    `json:"price"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	Sqft         int      `json:"sqft"`
	YearBuilt    int      `json:"yearBuilt"`
	Description  string   `json:"description"`
	Photos       []string `json:"photos"`
	PropertyType string   `json:"propertyType"`
	ListingAgent string   `json:"listingAgent"`
	LotSize      string   `json:"lotSize"`
}

// Empty reports a page that yielded nothing useful.
func (d ListingData) Empty() bool {
	return d.Address == "" && d.Price == 0 && d.Bedrooms == 0 && d.Sqft == 0 && len(d.Photos) == 0
}

type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type Scraper struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config, httpClient *http.Client) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; buyerdesk/1.0)"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Scraper{cfg: cfg, httpClient: httpClient}
}

// Fetch downloads rawURL and parses it. Non-2xx answers return *StatusError.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (ListingData, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ListingData{}, fmt.Errorf("invalid listing url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ListingData{}, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ListingData{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ListingData{}, &StatusError{StatusCode: resp.StatusCode, URL: u.String()}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes))
	if err != nil {
		return ListingData{}, err
	}
	return Parse(b, u)
}

// Parse extracts listing fields from JSON-LD first, then meta tags, then
// visible text. Earlier sources win.
func Parse(html []byte, base *url.URL) (ListingData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ListingData{}, fmt.Errorf("parse html: %w", err)
	}
	var out ListingData
	fromJSONLD(doc, &out)
	fromMeta(doc, &out)
	fromText(doc, &out)
	out.Photos = absolutize(base, out.Photos)
	return out, nil
}

func fromJSONLD(doc *goquery.Document, out *ListingData) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &raw); err != nil {
			return
		}
		walkLD(raw, out)
	})
}

func walkLD(v any, out *ListingData) {
	switch t := v.(type) {
	case []any:
		for _, x := range t {
			walkLD(x, out)
		}
	case map[string]any:
		if g, ok := t["@graph"]; ok {
			walkLD(g, out)
		}
		applyLD(t, out)
		for _, k := range []string{"mainEntity", "itemOffered", "about"} {
			if inner, ok := t[k]; ok {
				walkLD(inner, out)
			}
		}
	}
}

func applyLD(m map[string]any, out *ListingData) {
	if addr, ok := m["address"].(map[string]any); ok {
		setStr(&out.Address, str(addr["streetAddress"]))
		setStr(&out.City, str(addr["addressLocality"]))
		setStr(&out.State, str(addr["addressRegion"]))
		setStr(&out.ZipCode, str(addr["postalCode"]))
	}
	if offers, ok := m["offers"]; ok {
		switch o := offers.(type) {
		case map[string]any:
			setInt64(&out.Price, num(o["price"]))
		case []any:
			if len(o) > 0 {
				if first, ok := o[0].(map[string]any); ok {
					setInt64(&out.Price, num(first["price"]))
				}
			}
		}
	}
	setInt64(&out.Price, num(m["price"]))
	setInt(&out.Bedrooms, num(firstOf(m, "numberOfBedrooms", "numberOfRooms")))
	if out.Bathrooms == 0 {
		out.Bathrooms = num(firstOf(m, "numberOfBathroomsTotal", "numberOfFullBathrooms"))
	}
	if fs, ok := m["floorSize"].(map[string]any); ok {
		setInt(&out.Sqft, num(fs["value"]))
	}
	setInt(&out.YearBuilt, num(m["yearBuilt"]))
	setStr(&out.Description, str(m["description"]))
	if typ := str(m["@type"]); typ != "" && isResidenceType(typ) {
		setStr(&out.PropertyType, typ)
	}
	switch img := m["image"].(type) {
	case string:
		out.Photos = appendUnique(out.Photos, img)
	case []any:
		for _, x := range img {
			if s := str(x); s != "" {
				out.Photos = appendUnique(out.Photos, s)
			} else if im, ok := x.(map[string]any); ok {
				out.Photos = appendUnique(out.Photos, str(im["url"]))
			}
		}
	case map[string]any:
		out.Photos = appendUnique(out.Photos, str(img["url"]))
	}
	if agent, ok := m["seller"].(map[string]any); ok {
		setStr(&out.ListingAgent, str(agent["name"]))
	}
}

func isResidenceType(t string) bool {
	switch t {
	case "SingleFamilyResidence", "House", "Apartment", "Residence", "Condominium", "Townhouse":
		return true
	}
	return false
}

var addressRX = regexp.MustCompile(`^\s*([^,]+),\s*([^,]+),\s*([A-Z]{2})\s*(\d{5})?`)

func fromMeta(doc *goquery.Document, out *ListingData) {
	meta := func(keys ...string) string {
		for _, k := range keys {
			sel := doc.Find(fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, k, k)).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	title := meta("og:title", "twitter:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if m := addressRX.FindStringSubmatch(title); m != nil {
		setStr(&out.Address, strings.TrimSpace(m[1]))
		setStr(&out.City, strings.TrimSpace(m[2]))
		setStr(&out.State, m[3])
		setStr(&out.ZipCode, m[4])
	}
	setStr(&out.Description, meta("og:description", "description", "twitter:description"))
	setInt64(&out.Price, parseMoney(meta("product:price:amount", "og:price:amount")))
	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			out.Photos = appendUnique(out.Photos, strings.TrimSpace(v))
		}
	})
}

var (
	priceRX = regexp.MustCompile(`\$\s?([\d,]{5,})`)
	bedsRX  = regexp.MustCompile(`(?i)(\d+)\s*(?:bd|beds?|bedrooms?)\b`)
	bathsRX = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:ba|baths?|bathrooms?)\b`)
	sqftRX  = regexp.MustCompile(`(?i)([\d,]{3,})\s*(?:sq\.?\s*ft|sqft|square\s+feet)\b`)
	yearRX  = regexp.MustCompile(`(?i)(?:built\s+in|year\s+built:?)\s*(\d{4})`)
	lotRX   = regexp.MustCompile(`(?i)([\d.,]+\s*(?:acres?|sq\.?\s*ft\s+lot))`)
	agentRX = regexp.MustCompile(`(?i)listed\s+by:?\s*([A-Z][\w.'-]+(?:\s+[A-Z][\w.'-]+){0,3})`)
	wsRX    = regexp.MustCompile(`\s+`)
)

func fromText(doc *goquery.Document, out *ListingData) {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := wsRX.ReplaceAllString(body.Text(), " ")

	if m := priceRX.FindStringSubmatch(text); m != nil {
		setInt64(&out.Price, parseMoney(m[1]))
	}
	if m := bedsRX.FindStringSubmatch(text); m != nil {
		setInt(&out.Bedrooms, parseFloat(m[1]))
	}
	if m := bathsRX.FindStringSubmatch(text); m != nil && out.Bathrooms == 0 {
		out.Bathrooms = parseFloat(m[1])
	}
	if m := sqftRX.FindStringSubmatch(text); m != nil {
		setInt(&out.Sqft, parseMoney(m[1]))
	}
	if m := yearRX.FindStringSubmatch(text); m != nil {
		setInt(&out.YearBuilt, parseFloat(m[1]))
	}
	if m := lotRX.FindStringSubmatch(text); m != nil {
		setStr(&out.LotSize, strings.TrimSpace(m[1]))
	}
	if m := agentRX.FindStringSubmatch(text); m != nil {
		setStr(&out.ListingAgent, strings.TrimSpace(m[1]))
	}
}

func absolutize(base *url.URL, photos []string) []string {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		u, err := url.Parse(p)
		if err != nil || p == "" {
			continue
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		out = appendUnique(out, u.String())
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return str(t[0])
		}
	}
	return ""
}

func num(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return parseMoney(t)
	case map[string]any:
		return num(t["value"])
	}
	return 0
}

func parseMoney(s string) float64 {
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(s))
	return parseFloat(s)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func setStr(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func setInt(dst *int, v float64) {
	if *dst == 0 && v > 0 {
		*dst = int(v)
	}
}

func setInt64(dst *int64, v float64) {
	if *dst == 0 && v > 0 {
		*dst = int64(v)
	}
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
