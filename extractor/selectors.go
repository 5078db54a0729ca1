package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strategy is one way to pull a logical field out of a record element.
// An empty Selector targets the record element itself; an empty Attr
// reads text content instead of an attribute.
type strategy struct {
	Selector string
	Attr     string
}

// fieldChain is an ordered list of strategies for one field. The first
// strategy that yields a non-empty value wins; a full miss leaves the
// field to its documented default rather than failing the record.
type fieldChain []strategy

// firstMatch evaluates a chain against a record element.
func firstMatch(root *goquery.Selection, chain fieldChain) string {
	for _, s := range chain {
		sel := root
		if s.Selector != "" {
			sel = root.Find(s.Selector).First()
			if sel.Length() == 0 {
				continue
			}
		}

		var value string
		if s.Attr != "" {
			value, _ = sel.Attr(s.Attr)
		} else {
			value = sel.Text()
		}

		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}
	return ""
}

// hasAnyMarker reports whether the record element matches any of the
// given marker strategies: a class on the element itself, a child
// element, or an attribute value.
func hasAnyMarker(root *goquery.Selection, markers []marker) bool {
	for _, m := range markers {
		switch {
		case m.Class != "":
			if root.HasClass(m.Class) {
				return true
			}
		case m.Child != "":
			if root.Find(m.Child).Length() > 0 {
				return true
			}
		case m.Attr != "":
			if v, ok := root.Attr(m.Attr); ok && v == m.AttrValue {
				return true
			}
		}
	}
	return false
}

// marker is one way a boolean state can be represented in the markup.
type marker struct {
	Class     string
	Child     string
	Attr      string
	AttrValue string
}

// Field chains for conversation rows. The storefront has shipped at
// least three variants of this markup; keep every selector that has
// ever matched.
var (
	convIDChain = fieldChain{
		{Attr: "data-conversation-id"},
		{Selector: "[data-conversation-id]", Attr: "data-conversation-id"},
		{Selector: ".conversation-id"},
		{Attr: "id"},
	}
	convCustomerChain = fieldChain{
		{Selector: ".customer-name"},
		{Selector: "[data-buyer-name]", Attr: "data-buyer-name"},
		{Selector: ".sender-name"},
		{Selector: "a.username"},
	}
	convPreviewChain = fieldChain{
		{Selector: ".message-preview"},
		{Selector: ".message-snippet"},
		{Selector: ".preview-text"},
		{Selector: "p"},
	}
	convTimestampChain = fieldChain{
		{Selector: ".timestamp"},
		{Selector: "time", Attr: "datetime"},
		{Selector: "time"},
		{Selector: ".date"},
	}
	convDetailURLChain = fieldChain{
		{Selector: "a[href*='/conversations/']", Attr: "href"},
		{Selector: "a", Attr: "href"},
	}
	convUnreadMarkers = []marker{
		{Class: "unread"},
		{Child: ".unread-marker"},
		{Child: ".unread-dot"},
		{Attr: "data-unread", AttrValue: "true"},
	}
)

// Field chains for conversation detail pages.
var (
	msgSenderChain = fieldChain{
		{Selector: ".sender-name"},
		{Selector: "[data-sender]", Attr: "data-sender"},
		{Selector: ".message-from"},
	}
	msgContentChain = fieldChain{
		{Selector: ".message-body"},
		{Selector: ".message-content"},
		{Selector: ".message-text"},
		{Selector: "p"},
	}
	msgTimestampChain = fieldChain{
		{Selector: ".timestamp"},
		{Selector: "time", Attr: "datetime"},
		{Selector: "time"},
	}
	detailCustomerChain = fieldChain{
		{Selector: ".customer-header .customer-name"},
		{Selector: ".buyer-profile .name"},
		{Selector: "h1"},
	}
	detailProfileURLChain = fieldChain{
		{Selector: "a[href*='/people/']", Attr: "href"},
		{Selector: ".buyer-profile a", Attr: "href"},
	}
	detailOrderNumberChain = fieldChain{
		{Selector: "[data-order-id]", Attr: "data-order-id"},
		{Selector: ".order-number"},
	}
	detailOrderURLChain = fieldChain{
		{Selector: "a[href*='/orders/']", Attr: "href"},
	}
)

// Field chains for order cards.
var (
	orderIDChain = fieldChain{
		{Attr: "data-order-id"},
		{Selector: "[data-order-id]", Attr: "data-order-id"},
		{Selector: ".order-number"},
		{Attr: "id"},
	}
	orderBuyerChain = fieldChain{
		{Selector: ".buyer-name"},
		{Selector: "[data-buyer-name]", Attr: "data-buyer-name"},
		{Selector: ".customer-name"},
	}
	orderStatusChain = fieldChain{
		{Selector: ".order-status"},
		{Attr: "data-status"},
		{Selector: "[data-status]", Attr: "data-status"},
		{Selector: ".status-badge"},
	}
	orderTotalChain = fieldChain{
		{Selector: ".order-total"},
		{Selector: ".total-price"},
		{Selector: "[data-total]", Attr: "data-total"},
	}
	orderDateChain = fieldChain{
		{Selector: ".order-date"},
		{Selector: "time", Attr: "datetime"},
		{Selector: "time"},
	}
	itemTitleChain = fieldChain{
		{Selector: ".item-title"},
		{Selector: ".listing-title"},
		{Selector: "a[href*='/listing/']"},
		{Selector: "h3"},
	}
	itemQuantityChain = fieldChain{
		{Selector: ".item-quantity"},
		{Attr: "data-quantity"},
		{Selector: "[data-quantity]", Attr: "data-quantity"},
	}
	itemCustomizationChain = fieldChain{
		{Selector: ".personalization"},
		{Selector: ".customization"},
		{Selector: ".variation"},
	}
)
