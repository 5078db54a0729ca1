package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storefront-agent/internal/types"
)

// Defaults used when every strategy in a field's chain misses. A
// malformed record keeps these instead of aborting the batch.
const (
	unknownCustomer = "Unknown Customer"
	unknownBuyer    = "Unknown"
	unknownStatus   = "Unknown"
)

// conversationRows matches the inbox row across the markup variants the
// storefront has shipped.
const conversationRows = ".conversation-row, tr.conversation, li[data-conversation-id], div[data-conversation-id]"

// orderCards matches one order across markup variants.
const orderCards = ".order-card, .order-row, div[data-order-id], li[data-order-id]"

// parseConversations pulls inbox rows out of a messages page.
func parseConversations(doc *goquery.Document, baseURL string) []types.Conversation {
	var conversations []types.Conversation

	doc.Find(conversationRows).Each(func(i int, row *goquery.Selection) {
		preview := firstMatch(row, convPreviewChain)

		conv := types.Conversation{
			ID:         firstMatch(row, convIDChain),
			Customer:   firstMatch(row, convCustomerChain),
			Preview:    preview,
			IsUnread:   hasAnyMarker(row, convUnreadMarkers),
			Timestamp:  firstMatch(row, convTimestampChain),
			NeedsQuote: NeedsQuote(preview),
			DetailURL:  absoluteURL(firstMatch(row, convDetailURLChain), baseURL),
		}
		if conv.Customer == "" {
			conv.Customer = unknownCustomer
		}
		conversations = append(conversations, conv)
	})

	return conversations
}

// parseConversationDetail pulls the full thread out of a conversation page.
func parseConversationDetail(doc *goquery.Document, baseURL string) *types.ConversationDetail {
	detail := &types.ConversationDetail{
		Customer: types.CustomerInfo{
			Name:       firstMatch(doc.Selection, detailCustomerChain),
			ProfileURL: absoluteURL(firstMatch(doc.Selection, detailProfileURLChain), baseURL),
		},
		Order: types.OrderInfo{
			OrderNumber: firstMatch(doc.Selection, detailOrderNumberChain),
			OrderURL:    absoluteURL(firstMatch(doc.Selection, detailOrderURLChain), baseURL),
		},
	}
	if detail.Customer.Name == "" {
		detail.Customer.Name = unknownCustomer
	}

	doc.Find(".message, .message-row, div[data-message-id]").Each(func(i int, el *goquery.Selection) {
		msg := types.Message{
			Sender:    firstMatch(el, msgSenderChain),
			Content:   firstMatch(el, msgContentChain),
			Timestamp: firstMatch(el, msgTimestampChain),
		}
		el.Find("a.attachment, a[href*='/attachment/'], .attachments a").Each(func(j int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			name := strings.TrimSpace(a.Text())
			if name == "" {
				name = "attachment"
			}
			if href != "" {
				msg.Attachments = append(msg.Attachments, types.Attachment{
					Name: name,
					URL:  absoluteURL(href, baseURL),
				})
			}
		})
		detail.Messages = append(detail.Messages, msg)
	})

	return detail
}

// parseOrders pulls order cards out of an orders page.
func parseOrders(doc *goquery.Document) []types.Order {
	var orders []types.Order

	doc.Find(orderCards).Each(func(i int, card *goquery.Selection) {
		order := types.Order{
			OrderID:   firstMatch(card, orderIDChain),
			BuyerName: firstMatch(card, orderBuyerChain),
			Status:    firstMatch(card, orderStatusChain),
			Total:     firstMatch(card, orderTotalChain),
			OrderDate: firstMatch(card, orderDateChain),
		}
		if order.BuyerName == "" {
			order.BuyerName = unknownBuyer
		}
		if order.Status == "" {
			order.Status = unknownStatus
		}

		var itemTexts []string
		card.Find(".order-item, .transaction, li[data-listing-id]").Each(func(j int, el *goquery.Selection) {
			item := types.OrderItem{
				Title:         firstMatch(el, itemTitleChain),
				Quantity:      parseQuantity(firstMatch(el, itemQuantityChain)),
				Customization: firstMatch(el, itemCustomizationChain),
			}
			order.Items = append(order.Items, item)
			itemTexts = append(itemTexts, item.Title, item.Customization)
		})

		order.Is3DPrint = Is3DPrint(itemTexts)
		order.NeedsProcessing = NeedsProcessing(order.Status)
		orders = append(orders, order)
	})

	return orders
}

// summarizeConversations builds the messages-updated payload.
func summarizeConversations(conversations []types.Conversation) types.MessagesSummary {
	summary := types.MessagesSummary{Total: len(conversations)}
	for _, c := range conversations {
		if c.IsUnread {
			summary.Unread++
		}
		if c.NeedsQuote {
			summary.QuoteRequests++
		}
	}
	return summary
}

// summarizeOrders builds the orders-updated payload.
func summarizeOrders(orders []types.Order) types.OrdersSummary {
	summary := types.OrdersSummary{Total: len(orders)}
	for _, o := range orders {
		if o.Status == "New" {
			summary.New++
		}
		if o.Is3DPrint {
			summary.PrintOrders++
		}
	}
	return summary
}

// parseQuantity reads the first integer out of a quantity string like
// "x2" or "Qty: 3". Defaults to 1.
func parseQuantity(text string) int {
	digits := strings.Builder{}
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 1
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// absoluteURL resolves a relative href against the storefront base URL.
func absoluteURL(href, baseURL string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return baseURL + href
	}
	return baseURL + "/" + href
}
