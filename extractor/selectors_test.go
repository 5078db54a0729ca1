package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFirstMatch_PrimaryAttribute(t *testing.T) {
	doc := docFromHTML(t, `<div class="row" data-conversation-id="123"><span class="conversation-id">999</span></div>`)
	row := doc.Find(".row")

	assert.Equal(t, "123", firstMatch(row, convIDChain))
}

func TestFirstMatch_SecondaryElement(t *testing.T) {
	// Primary attribute missing, nested id element present.
	doc := docFromHTML(t, `<div class="row"><span class="conversation-id">456</span></div>`)
	row := doc.Find(".row")

	assert.Equal(t, "456", firstMatch(row, convIDChain))
}

func TestFirstMatch_OwnIdentifierFallback(t *testing.T) {
	// Both preferred candidates missing: fall back to the element's own id.
	doc := docFromHTML(t, `<div class="row" id="convo-789"></div>`)
	row := doc.Find(".row")

	assert.Equal(t, "convo-789", firstMatch(row, convIDChain))
}

func TestFirstMatch_AllMiss(t *testing.T) {
	doc := docFromHTML(t, `<div class="row"></div>`)
	row := doc.Find(".row")

	assert.Equal(t, "", firstMatch(row, convCustomerChain))
}

func TestFirstMatch_SkipsEmptyValues(t *testing.T) {
	// An empty primary element must not shadow a populated secondary one.
	doc := docFromHTML(t, `<div class="row"><span class="customer-name">  </span><span class="sender-name">Ada</span></div>`)
	row := doc.Find(".row")

	assert.Equal(t, "Ada", firstMatch(row, convCustomerChain))
}

func TestHasAnyMarker_ClassOnRoot(t *testing.T) {
	doc := docFromHTML(t, `<div class="row unread"></div>`)
	assert.True(t, hasAnyMarker(doc.Find(".row"), convUnreadMarkers))
}

func TestHasAnyMarker_ChildElement(t *testing.T) {
	doc := docFromHTML(t, `<div class="row"><span class="unread-dot"></span></div>`)
	assert.True(t, hasAnyMarker(doc.Find(".row"), convUnreadMarkers))
}

func TestHasAnyMarker_DataAttribute(t *testing.T) {
	doc := docFromHTML(t, `<div class="row" data-unread="true"></div>`)
	assert.True(t, hasAnyMarker(doc.Find(".row"), convUnreadMarkers))

	doc = docFromHTML(t, `<div class="row" data-unread="false"></div>`)
	assert.False(t, hasAnyMarker(doc.Find(".row"), convUnreadMarkers))
}

func TestHasAnyMarker_NoMarkers(t *testing.T) {
	doc := docFromHTML(t, `<div class="row"><span class="read"></span></div>`)
	assert.False(t, hasAnyMarker(doc.Find(".row"), convUnreadMarkers))
}
