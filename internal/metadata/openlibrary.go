package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when OpenLibrary has no record for the query.
var ErrNotFound = errors.New("no matching book on OpenLibrary")

const userAgent = "UniversityLibrary/1.0 (cover lookup)"

// BookMetadata is the subset of OpenLibrary data the catalog uses.
type BookMetadata struct {
	Title          string `json:"title,omitempty"`
	Author         string `json:"author,omitempty"`
	ISBN           string `json:"isbn,omitempty"`
	CoverURL       string `json:"cover_url,omitempty"`
	OpenLibraryKey string `json:"open_library_key,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	coversURL   string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a new OpenLibrary API client limited to one request per second.
func NewOpenLibraryClient() *OpenLibraryClient {
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     "https://openlibrary.org",
		coversURL:   "https://covers.openlibrary.org",
		rateLimiter: newRateLimiter(time.Second),
	}
}

// SearchByISBN looks up an edition by ISBN.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn), &edition); err != nil {
		return nil, fmt.Errorf("fetch ISBN %s: %w", isbn, err)
	}

	metadata := &BookMetadata{
		Title:          edition.Title,
		ISBN:           isbn,
		OpenLibraryKey: edition.Key,
	}
	if len(edition.Covers) > 0 && edition.Covers[0] > 0 {
		metadata.CoverURL = c.coverByID(edition.Covers[0])
	} else {
		metadata.CoverURL = c.coverByISBN(isbn)
	}

	if len(edition.Authors) > 0 {
		if name, err := c.fetchAuthorName(ctx, edition.Authors[0].Key); err == nil {
			metadata.Author = name
		}
	}

	return metadata, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	q := title
	if author != "" {
		q = title + " " + author
	}

	var result openLibrarySearchResult
	searchURL := fmt.Sprintf("%s/search.json?q=%s&limit=5", c.baseURL, url.QueryEscape(q))
	if err := c.getJSON(ctx, searchURL, &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("search %q: %w", title, ErrNotFound)
	}

	doc := findBestMatch(result.Docs, title, author)
	metadata := &BookMetadata{
		Title:          doc.Title,
		OpenLibraryKey: doc.Key,
	}
	if len(doc.AuthorName) > 0 {
		metadata.Author = doc.AuthorName[0]
	}
	if len(doc.ISBN) > 0 {
		metadata.ISBN = doc.ISBN[0]
	}
	switch {
	case doc.CoverI != 0:
		metadata.CoverURL = c.coverByID(doc.CoverI)
	case metadata.ISBN != "":
		metadata.CoverURL = c.coverByISBN(metadata.ISBN)
	}

	return metadata, nil
}

func findBestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	var bestMatch *openLibrarySearchDoc
	bestScore := -1

	for i := range docs {
		doc := &docs[i]
		score := 0

		docTitle := strings.ToLower(doc.Title)
		if docTitle == titleLower {
			score += 10
		} else if strings.Contains(docTitle, titleLower) {
			score += 5
		}

		if author != "" {
			for _, docAuthor := range doc.AuthorName {
				docAuthor = strings.ToLower(docAuthor)
				if docAuthor == authorLower {
					score += 10
					break
				} else if strings.Contains(docAuthor, authorLower) {
					score += 5
					break
				}
			}
		}

		// Only a cover makes the match useful here.
		if doc.CoverI != 0 {
			score += 3
		}
		if len(doc.ISBN) > 0 {
			score++
		}

		if score > bestScore {
			bestScore = score
			bestMatch = doc
		}
	}

	return bestMatch
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var author struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, authorKey), &author); err != nil {
		return "", err
	}
	return author.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *OpenLibraryClient) coverByID(id int) string {
	return fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, id)
}

func (c *OpenLibraryClient) coverByISBN(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, isbn)
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// Basic validation: ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// OpenLibrary API response types (internal)

type openLibraryEdition struct {
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Authors []authorRef `json:"authors"`
	Covers  []int       `json:"covers"`
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
	CoverI     int      `json:"cover_i"`
}
