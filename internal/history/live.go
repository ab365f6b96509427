package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/cantalupo555/nico-history-counter/internal/navigation"
)

// LivePage reads and scrolls the history page open in the browser.
// Every ctx passed to its methods must derive from a chromedp context.
type LivePage struct{}

// NewLivePage returns a reader for the current browser tab.
func NewLivePage() *LivePage {
	return &LivePage{}
}

// chunksScript collects the header label and video count of every loaded chunk.
var chunksScript = fmt.Sprintf(`
	(function() {
		const result = [];
		for (const chunk of document.querySelectorAll('%s')) {
			const header = chunk.querySelector('%s');
			if (!header) continue;
			const list = chunk.querySelector('%s');
			result.push({
				label: header.textContent || '',
				count: list ? list.children.length : 0
			});
		}
		return result;
	})()
`, ChunkSelector, HeaderSelector, ListSelector)

type rawChunk struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayChunks returns the chunks currently rendered, in page order.
func (p *LivePage) DayChunks(ctx context.Context) ([]DayChunk, error) {
	var raw []rawChunk
	if err := chromedp.Run(ctx, chromedp.Evaluate(chunksScript, &raw)); err != nil {
		return nil, fmt.Errorf("could not read day chunks: %w", err)
	}

	chunks := make([]DayChunk, 0, len(raw))
	for _, c := range raw {
		chunks = append(chunks, DayChunk{Label: strings.TrimSpace(c.Label), Count: c.Count})
	}
	return chunks, nil
}

// Height returns the current document height.
func (p *LivePage) Height(ctx context.Context) (float64, error) {
	return navigation.DocumentHeight(ctx)
}

// ViewportHeight returns the window's inner height.
func (p *LivePage) ViewportHeight(ctx context.Context) (float64, error) {
	return navigation.ViewportHeight(ctx)
}

// ScrollBy scrolls the page down.
func (p *LivePage) ScrollBy(ctx context.Context, pixels float64) error {
	return navigation.ScrollBy(ctx, pixels)
}

// Snapshot returns the outer HTML of the history container, or of the whole
// document when the container is missing.
func (p *LivePage) Snapshot(ctx context.Context) (string, error) {
	var html string
	script := fmt.Sprintf(`
		(function() {
			const container = document.querySelector('%s');
			return container ? container.outerHTML : document.documentElement.outerHTML;
		})()
	`, ContainerSelector)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &html)); err != nil {
		return "", fmt.Errorf("could not snapshot history: %w", err)
	}
	return html, nil
}

// Chunks re-reads the rendered history through the HTML parser. Used once the
// scroll loop is done, so the tally and a saved snapshot agree.
func (p *LivePage) Chunks(ctx context.Context) ([]DayChunk, string, error) {
	html, err := p.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	chunks, err := ParseHTML(strings.NewReader(html))
	if err != nil {
		return nil, html, err
	}
	return chunks, html, nil
}
