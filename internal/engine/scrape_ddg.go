package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ddgTarget scrapes the DuckDuckGo HTML lite endpoint, which needs no VQD
// token and serves plain result blocks.
var ddgTarget = scrapeTarget{
	name:    ProviderDuckDuckGo,
	request: ddgRequest,
	parse:   parseDDGHTML,
	blocked: []string{"anomaly-modal", "bots use duckduckgo too"},
}

func ddgRequest(query, language string) scrapeRequest {
	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", ddgRegion(language))
	form.Set("df", "")

	headers := searchHeaders()
	headers["referer"] = "https://html.duckduckgo.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"

	return scrapeRequest{
		method:  "POST",
		url:     "https://html.duckduckgo.com/html/",
		headers: headers,
		body:    form.Encode(),
	}
}

// ddgRegion maps a language tag such as "pt-BR" onto DDG's "br-pt" region.
func ddgRegion(language string) string {
	lang, country, ok := strings.Cut(language, "-")
	if !ok || lang == "" || country == "" {
		return "wt-wt"
	}
	return strings.ToLower(country) + "-" + strings.ToLower(lang)
}

// parseDDGHTML extracts search results from DDG HTML lite response.
func parseDDGHTML(data []byte) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []Result
	doc.Find(".result, .web-result").Each(func(i int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}
		href = ddgUnwrapURL(href)
		if href == "" {
			return
		}
		results = append(results, Result{URL: href, Title: title})
	})
	return results, nil
}

// ddgUnwrapURL extracts the actual URL from DDG redirect wrappers.
// DDG HTML wraps links as: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if uddg := u.Query().Get("uddg"); uddg != "" {
				return uddg
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}
