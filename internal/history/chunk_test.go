package history_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/nico-history-counter/internal/history"
)

const historyPage = `
<html><body>
<div class="VideoWatchHistoryContainer">
  <div class="VideoWatchHistoryContainer-dayChunk">
    <h3 class="VideoWatchHistoryContainer-dayHeader"> 今日 </h3>
    <div class="VideoMediaObjectList">
      <div class="VideoMediaObject">a</div>
      <div class="VideoMediaObject">b</div>
      <div class="VideoMediaObject">c</div>
    </div>
  </div>
  <div class="VideoWatchHistoryContainer-dayChunk">
    <h3 class="VideoWatchHistoryContainer-dayHeader">昨日</h3>
    <div class="VideoMediaObjectList"></div>
  </div>
  <div class="VideoWatchHistoryContainer-dayChunk">
    <p>header not rendered yet</p>
  </div>
  <div class="VideoWatchHistoryContainer-dayChunk">
    <h3 class="VideoWatchHistoryContainer-dayHeader">10月13日</h3>
  </div>
  <div class="VideoWatchHistoryContainer-dayChunk">
    <h3 class="VideoWatchHistoryContainer-dayHeader">10月12日</h3>
    <div class="VideoMediaObjectList">
      <div class="VideoMediaObject">d</div>
      <div class="VideoMediaObject">e</div>
    </div>
  </div>
</div>
</body></html>`

func TestParseHTML(t *testing.T) {
	chunks, err := history.ParseHTML(strings.NewReader(historyPage))
	require.NoError(t, err)

	assert.Equal(t, []history.DayChunk{
		{Label: "今日", Count: 3},
		{Label: "昨日", Count: 0},
		{Label: "10月13日", Count: 0},
		{Label: "10月12日", Count: 2},
	}, chunks)
}

func TestParseHTML_NotHistoryPage(t *testing.T) {
	_, err := history.ParseHTML(strings.NewReader(`<html><body><p>Log in</p></body></html>`))
	assert.ErrorIs(t, err, history.ErrNotHistoryPage)
}

func TestParseHTML_Fragment(t *testing.T) {
	fragment := `<div class="VideoWatchHistoryContainer-dayChunk">` +
		`<span class="VideoWatchHistoryContainer-dayHeader">9月30日</span>` +
		`<ul class="VideoMediaObjectList"><li>x</li></ul></div>`

	chunks, err := history.ParseHTML(strings.NewReader(fragment))
	require.NoError(t, err)
	assert.Equal(t, []history.DayChunk{{Label: "9月30日", Count: 1}}, chunks)
}
