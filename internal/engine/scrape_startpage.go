package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var startpageTarget = scrapeTarget{
	name:    ProviderStartpage,
	request: startpageRequest,
	parse:   parseStartpageHTML,
	blocked: []string{"/sp/captcha"},
}

var startpageLanguages = map[string]string{
	"pt": "portugues",
	"en": "english",
	"es": "espanol",
}

func startpageRequest(query, language string) scrapeRequest {
	lang, _, _ := strings.Cut(strings.ToLower(language), "-")
	spLang, ok := startpageLanguages[lang]
	if !ok {
		spLang = "english"
	}

	headers := searchHeaders()
	headers["referer"] = "https://www.startpage.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	return scrapeRequest{
		method:  "POST",
		url:     "https://www.startpage.com/sp/search",
		headers: headers,
		body: url.Values{
			"query":    {query},
			"cat":      {"web"},
			"language": {spLang},
		}.Encode(),
	}
}

// parseStartpageHTML extracts search results from Startpage HTML response.
func parseStartpageHTML(data []byte) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []Result

	// Result blocks: <div class="w-gl__result"> or <div class="result">
	doc.Find(".w-gl__result, .result").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a.w-gl__result-title, h3 a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}
		if href == "" || strings.Contains(href, "startpage.com/do/") {
			return
		}
		results = append(results, Result{URL: href, Title: title})
	})

	return results, nil
}
