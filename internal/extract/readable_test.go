package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainText_StripsBoilerplate(t *testing.T) {
	doc := `<html><head><title>t</title><style>p{}</style></head>
<body>
  <nav>Home | About</nav>
  <h1>Stars</h1>
  <p>The sun is a star.</p>
  <p>Stars emit   light.</p>
  <script>track()</script>
  <div style="display: none">hidden promo</div>
  <footer>Copyright</footer>
</body></html>`

	got := MainText(doc)

	assert.Equal(t, "Stars\n\nThe sun is a star.\n\nStars emit light.", got)
}

func TestMainText_PrefersArticle(t *testing.T) {
	body := strings.Repeat("Long article sentence about stars. ", 10)
	doc := `<html><body><div>Sidebar links</div><article><p>` + body + `</p></article></body></html>`

	got := MainText(doc)

	assert.NotContains(t, got, "Sidebar")
	assert.Contains(t, got, "Long article sentence")
}

func TestMainText_ShortArticleFallsBackToBody(t *testing.T) {
	doc := `<html><body><p>Intro text</p><article>tiny</article></body></html>`

	got := MainText(doc)

	assert.Contains(t, got, "Intro text")
	assert.Contains(t, got, "tiny")
}

func TestMainText_Empty(t *testing.T) {
	assert.Equal(t, "", MainText(""))
	assert.Equal(t, "", MainText("<html><body><script>x()</script></body></html>"))
}

func TestMainText_InlineElementsStayInParagraph(t *testing.T) {
	got := MainText(`<p>The <b>sun</b> is a <a href="#">star</a>.</p>`)

	assert.Equal(t, "The sun is a star.", got)
}
