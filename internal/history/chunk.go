// Package history reads the day chunks rendered on the watch history page.
package history

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the history page markup.
const (
	ContainerSelector = ".VideoWatchHistoryContainer"
	ChunkSelector     = ".VideoWatchHistoryContainer-dayChunk"
	HeaderSelector    = ".VideoWatchHistoryContainer-dayHeader"
	ListSelector      = ".VideoMediaObjectList"
)

// ErrNotHistoryPage is returned when a document has no day chunks at all.
var ErrNotHistoryPage = errors.New("no watch history day chunks found")

// DayChunk is one rendered day section: its header label and how many videos it lists.
type DayChunk struct {
	Label string
	Count int
}

// ParseHTML extracts the day chunks from a history page (or a fragment of one),
// in document order. Chunks without a header are skipped.
func ParseHTML(r io.Reader) ([]DayChunk, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse history html: %w", err)
	}

	sel := doc.Find(ChunkSelector)
	if sel.Length() == 0 {
		return nil, ErrNotHistoryPage
	}

	chunks := make([]DayChunk, 0, sel.Length())
	sel.Each(func(_ int, chunk *goquery.Selection) {
		header := chunk.Find(HeaderSelector).First()
		if header.Length() == 0 {
			return
		}
		// Only the first list counts, matching what the page itself renders per day.
		count := chunk.Find(ListSelector).First().Children().Length()
		chunks = append(chunks, DayChunk{
			Label: strings.TrimSpace(header.Text()),
			Count: count,
		})
	})
	return chunks, nil
}
