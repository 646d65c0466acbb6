// Package catalog lists the dump files a Blockchair-style HTTP index page
// offers, by scraping the anchor tags of the generated directory listing.
// It pairs with internal/download: catalog discovers what exists upstream,
// download fetches it.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// fileNameRE matches dump file names like
// blockchair_bitcoin_transactions_20240517.tsv.gz and captures coin, kind,
// and date.
var fileNameRE = regexp.MustCompile(`^blockchair_([a-z0-9-]+)_([a-z_]+)_(\d{8})\.tsv\.gz$`)

// Entry is one dump file offered by the index.
type Entry struct {
	// Name is the bare file name.
	Name string

	// URL is the absolute download URL.
	URL string

	Coin string
	Kind string
	Date time.Time
}

// httpDo is a test seam over http.DefaultClient.Do.
var httpDo = http.DefaultClient.Do

// List fetches the index page at <baseURL>/<coin>/<kind>/ and returns the
// dump files it links to, oldest first. Links that do not look like dump
// files (parent-directory links, checksums, decoration) are ignored.
func List(ctx context.Context, baseURL, coin, kind string) ([]Entry, error) {
	indexURL := fmt.Sprintf("%s/%s/%s/", strings.TrimRight(baseURL, "/"), coin, kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpDo(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index %s: %w", indexURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch index %s: unexpected status %s", indexURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index %s: %w", indexURL, err)
	}

	return parse(doc, indexURL), nil
}

func parse(doc *goquery.Document, indexURL string) []Entry {
	var entries []Entry
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		name := strings.TrimPrefix(href, "./")
		if seen[name] {
			return
		}

		m := fileNameRE.FindStringSubmatch(name)
		if m == nil {
			return
		}
		date, err := time.Parse("20060102", m[3])
		if err != nil {
			return
		}

		seen[name] = true
		entries = append(entries, Entry{
			Name: name,
			URL:  indexURL + name,
			Coin: m[1],
			Kind: m[2],
			Date: date,
		})
	})

	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries
}
