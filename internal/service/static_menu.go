package service

import (
	"slices"

	"github.com/tablebite/ordering/internal/models"
)

func spice(level int) *int { return &level }

// staticMenu is served for type=static and whenever the live menu cannot be built.
var staticMenu = []models.MenuItem{
	{
		ID:          1,
		Name:        "Classic Margherita Pizza",
		Description: "Fresh mozzarella, tomato sauce, basil, and olive oil",
		Price:       14.99,
		Image:       "https://images.unsplash.com/photo-1574071318508-1cdbab80d002?w=400&h=300&fit=crop",
		Ingredients: "mozzarella, tomato sauce, fresh basil, olive oil, wheat crust",
		Category:    "Pizza",
		Dietary:     []string{"vegetarian"},
		SpiceLevel:  spice(0),
	},
	{
		ID:          2,
		Name:        "BBQ Bacon Burger",
		Description: "Angus beef patty, crispy bacon, cheddar, BBQ sauce, onion rings",
		Price:       13.50,
		Image:       "https://images.unsplash.com/photo-1553979459-d2229ba7433b?w=400&h=300&fit=crop",
		Ingredients: "angus beef, bacon, cheddar, BBQ sauce, onion rings, brioche bun",
		Category:    "Burgers",
		SpiceLevel:  spice(1),
	},
	{
		ID:          3,
		Name:        "Caesar Salad",
		Description: "Romaine lettuce, parmesan, croutons, Caesar dressing",
		Price:       9.99,
		Image:       "https://images.unsplash.com/photo-1546793665-c74683f339c1?w=400&h=300&fit=crop",
		Ingredients: "romaine lettuce, parmesan, croutons, Caesar dressing with anchovy",
		Category:    "Salads",
		SpiceLevel:  spice(0),
	},
	{
		ID:          4,
		Name:        "Chicken Tikka Masala",
		Description: "Tender chicken in creamy tomato curry sauce with basmati rice",
		Price:       16.99,
		Image:       "https://images.unsplash.com/photo-1565557623262-b51c2513a641?w=400&h=300&fit=crop",
		Ingredients: "chicken, tomato, cream, garam masala, basmati rice",
		Category:    "Entrees",
		Dietary:     []string{"gluten-free"},
		SpiceLevel:  spice(2),
	},
	{
		ID:          5,
		Name:        "Fish Tacos",
		Description: "Grilled mahi-mahi, cabbage slaw, lime crema, three soft tortillas",
		Price:       12.99,
		Image:       "https://images.unsplash.com/photo-1551504734-5ee1c4a1479b?w=400&h=300&fit=crop",
		Ingredients: "mahi-mahi, cabbage, lime crema, corn tortillas",
		Category:    "Tacos",
		Dietary:     []string{"pescatarian"},
		SpiceLevel:  spice(1),
	},
	{
		ID:          6,
		Name:        "Pad Thai",
		Description: "Rice noodles, shrimp, peanuts, bean sprouts, tamarind sauce",
		Price:       13.99,
		Image:       "https://images.unsplash.com/photo-1559314809-0d155014e29e?w=400&h=300&fit=crop",
		Ingredients: "rice noodles, shrimp, peanuts, bean sprouts, egg, tamarind sauce",
		Category:    "Noodles",
		Dietary:     []string{"pescatarian", "contains nuts"},
		SpiceLevel:  spice(2),
	},
	{
		ID:          7,
		Name:        "Lobster Mac & Cheese",
		Description: "Creamy four-cheese sauce with chunks of fresh lobster",
		Price:       22.99,
		Image:       "https://images.unsplash.com/photo-1476124369491-f51a157fc5ea?w=400&h=300&fit=crop",
		Ingredients: "macaroni, lobster, cheddar, gruyere, fontina, parmesan",
		Category:    "Entrees",
		Dietary:     []string{"pescatarian"},
		SpiceLevel:  spice(0),
	},
	{
		ID:          8,
		Name:        "Chocolate Lava Cake",
		Description: "Warm chocolate cake with molten center, vanilla ice cream",
		Price:       8.99,
		Image:       "https://images.unsplash.com/photo-1624353365286-3f8d62daad51?w=400&h=300&fit=crop",
		Ingredients: "dark chocolate, butter, eggs, flour, vanilla ice cream",
		Category:    "Desserts",
		Dietary:     []string{"vegetarian"},
		SpiceLevel:  spice(0),
	},
}

// cloneMenu deep-copies items so callers cannot mutate shared state.
func cloneMenu(items []models.MenuItem) []models.MenuItem {
	out := make([]models.MenuItem, len(items))
	for i, item := range items {
		item.Dietary = slices.Clone(item.Dietary)
		if item.SpiceLevel != nil {
			item.SpiceLevel = spice(*item.SpiceLevel)
		}

		out[i] = item
	}

	return out
}
