package extractor

import "strings"

// quoteKeywords flag a conversation preview as a likely quote request.
var quoteKeywords = []string{"quote", "price", "cost", "how much", "custom", "3d print", "stl", "file"}

// printKeywords flag an order item as 3D-print related.
var printKeywords = []string{"3d", "print", "stl", "file"}

// processingStatuses are matched by exact equality. If the storefront
// ever rewords these labels the check silently stops matching; that is
// intentional, there is no independent source for the status vocabulary.
var processingStatuses = []string{"New", "Payment confirmed"}

// NeedsQuote reports whether the preview text looks like a quote request.
func NeedsQuote(preview string) bool {
	return containsAny(preview, quoteKeywords)
}

// Is3DPrint reports whether any item's title or customization mentions
// 3D printing.
func Is3DPrint(items []string) bool {
	for _, text := range items {
		if containsAny(text, printKeywords) {
			return true
		}
	}
	return false
}

// NeedsProcessing reports whether the order status means the order still
// needs action from the seller.
func NeedsProcessing(status string) bool {
	for _, s := range processingStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
