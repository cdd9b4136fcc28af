// Prompt assembly for the shopping assistant.
//
// USAGE:
//   - BuildRequest() combines system instructions, retrieved catalog context,
//     and the trailing history window into a provider Request.
package provider

import (
	"fmt"
	"strings"

	"github.com/shoply/assistant-engine/internal/catalog"
)

// SystemPrompt fixes the assistant's behavior. Retrieved products are the
// only catalog knowledge the model gets; it must not invent inventory.
const SystemPrompt = `You are a helpful shopping assistant for an online store.

Guidelines:
1. ANSWER questions about products using only the provided product context
2. RECOMMEND products from the context when they fit the customer's need
3. STATE prices exactly as given - never guess or convert currencies
4. SAY so plainly when the context has no matching product
5. KEEP replies short and conversational - two or three sentences
6. NEVER invent products, stock levels, discounts, or delivery promises`

// BuildRequest assembles the outgoing generation request from retrieved
// context items and the session's trailing history window. The newest user
// message is expected to be the last history entry.
func BuildRequest(items []catalog.Item, history []Message) Request {
	system := SystemPrompt
	if len(items) > 0 {
		system = system + "\n\n" + serializeItems(items)
	}
	return Request{
		System:   system,
		Messages: history,
	}
}

// serializeItems renders retrieved products as prompt context.
func serializeItems(items []catalog.Item) string {
	var b strings.Builder
	b.WriteString("Relevant products:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- [%d] %s (%s, %s) - $%.2f\n",
			it.ID, it.Name, it.Brand, it.Category, float64(it.PriceMin)/100)
	}
	return strings.TrimRight(b.String(), "\n")
}
