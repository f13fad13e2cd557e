package engine

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var bingTarget = scrapeTarget{
	name:    ProviderBing,
	request: bingRequest,
	parse:   parseBingHTML,
	blocked: []string{"/challenge/verify", "b_captcha"},
}

func bingRequest(query, language string) scrapeRequest {
	params := url.Values{}
	params.Set("q", query)
	if language != "" {
		params.Set("setlang", language)
	}
	headers := searchHeaders()
	headers["referer"] = "https://www.bing.com/"
	return scrapeRequest{
		method:  "GET",
		url:     "https://www.bing.com/search?" + params.Encode(),
		headers: headers,
	}
}

// parseBingHTML scans every anchor in the page and returns the absolute
// ones with their text as title, in document order.
func parseBingHTML(data []byte) ([]Result, error) {
	z := html.NewTokenizer(bytes.NewReader(data))

	var (
		results []Result
		href    string
		inLink  bool
		text    strings.Builder
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return results, err
			}
			return results, nil
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			href = anchorHref(z)
			inLink = href != ""
			text.Reset()
		case html.TextToken:
			if inLink {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || !inLink {
				continue
			}
			inLink = false
			link := bingUnwrapURL(href)
			if link == "" || isBingInternal(link) {
				continue
			}
			results = append(results, Result{URL: link, Title: strings.Join(strings.Fields(text.String()), " ")})
		}
	}
}

func anchorHref(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

// bingUnwrapURL resolves Bing click-tracking links (/ck/a?...&u=a1<base64>)
// to their destination. Relative links yield "".
func bingUnwrapURL(href string) string {
	if !strings.HasPrefix(href, "http") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Host, "bing.com") || u.Path != "/ck/a" {
		return href
	}
	enc := strings.TrimPrefix(u.Query().Get("u"), "a1")
	if enc == "" {
		return ""
	}
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(enc, "="))
	if err != nil {
		return ""
	}
	return string(dec)
}

func isBingInternal(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Host)
	return strings.HasSuffix(host, "bing.com") || strings.HasSuffix(host, "microsoft.com") || strings.HasSuffix(host, "msn.com")
}
