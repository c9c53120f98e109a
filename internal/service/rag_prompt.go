package service

import (
	"fmt"
	"strings"

	"github.com/tablebite/ordering/internal/models"
)

// Redirects the assistant must give instead of acting on the cart.
const (
	cartAddRedirect   = "I cannot add items to your cart. Please browse the menu and add items directly to your cart using the '+ Add to Cart' buttons."
	cartTotalRedirect = "I don't have access to your cart. You can view your cart and see the total by clicking the cart icon in the navigation."
)

const ragSystemPromptTemplate = `You are a helpful assistant for a sushi restaurant. Answer questions about the menu using ONLY the provided menu items. Be friendly and concise.

CRITICAL RESTRICTIONS - YOU CANNOT ACCESS ORDER DATA:
- You CANNOT add, remove, or modify items in user orders
- You CANNOT calculate order totals or prices
- You CANNOT access user cart data
- You CANNOT see what items are in the user's cart
- NEVER claim to have added items to the cart
- NEVER claim to know what's in the user's order unless they explicitly tell you

You can ONLY:
- Provide information about menu items from the menu
- Answer questions about ingredients, descriptions, categories, dietary info
- Make recommendations based on menu data

If a user asks you to add items to their cart, explain: "%s"

If a user asks about their order total or what's in their cart, explain: "%s"

If the user asks about items not in the context, politely say you don't have that information.

Menu Items:
%s`

// buildMenuContext lists retrieved items in rank order, one block per item.
func buildMenuContext(results []models.RetrievalResult) string {
	blocks := make([]string, 0, len(results))

	for i, r := range results {
		item := r.Item

		var b strings.Builder

		fmt.Fprintf(&b, "%d. %s - $%.2f\nDescription: %s", i+1, item.Name, item.Price, item.Description)

		if item.Ingredients != "" {
			fmt.Fprintf(&b, "\nIngredients: %s", item.Ingredients)
		}

		if item.Category != "" {
			fmt.Fprintf(&b, "\nCategory: %s", item.Category)
		}

		if len(item.Dietary) > 0 {
			fmt.Fprintf(&b, "\nDietary: %s", strings.Join(item.Dietary, ", "))
		}

		if item.SpiceLevel != nil && *item.SpiceLevel > 0 {
			fmt.Fprintf(&b, "\nSpice Level: %d/%d", *item.SpiceLevel, models.MaxSpiceLevel)
		}

		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}

func buildSystemPrompt(results []models.RetrievalResult) string {
	return fmt.Sprintf(ragSystemPromptTemplate, cartAddRedirect, cartTotalRedirect, buildMenuContext(results))
}
