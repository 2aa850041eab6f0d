package menu

// fallbackItems is the bundled menu served when the sheet is unreachable or
// yields no usable rows.
var fallbackItems = []MenuItem{
	{ID: "croissant", Name: "Butter Croissant", Description: "Laminated for three days, baked every morning.", Price: 3.25, Image: "/images/menu/croissant.jpg", Category: "pastries", Available: true, Popular: true, Calories: intPtr(280), Scale: strPtr("Large")},
	{ID: "pain-au-chocolat", Name: "Pain au Chocolat", Description: "Croissant dough wrapped around two bars of dark chocolate.", Price: 3.75, Image: "/images/menu/pain-au-chocolat.jpg", Category: "pastries", Available: true, Calories: intPtr(320)},
	{ID: "almond-croissant", Name: "Almond Croissant", Description: "Twice-baked with frangipane and toasted almonds.", Price: 4.25, Image: "/images/menu/almond-croissant.jpg", Category: "pastries", Available: true, Calories: intPtr(410)},
	{ID: "espresso", Name: "Espresso", Description: "Double shot of our house blend.", Price: 2.5, Image: "/images/menu/espresso.jpg", Category: "coffee", Available: true, Scale: strPtr("Double")},
	{ID: "flat-white", Name: "Flat White", Description: "Velvety microfoam over a double ristretto.", Price: 3.8, Image: "/images/menu/flat-white.jpg", Category: "coffee", Available: true, Popular: true, Calories: intPtr(110), Scale: strPtr("8 oz")},
	{ID: "oat-latte", Name: "Oat Latte", Description: "Espresso with steamed oat milk.", Price: 4.2, Image: "/images/menu/oat-latte.jpg", Category: "coffee", Available: true, Calories: intPtr(150), Scale: strPtr("12 oz")},
	{ID: "sourdough-loaf", Name: "Country Sourdough", Description: "Naturally leavened, 36-hour ferment.", Price: 8, Image: "/images/menu/sourdough.jpg", Category: "bread", Available: true, Popular: true, Scale: strPtr("1 kg")},
	{ID: "baguette", Name: "Baguette", Description: "Crisp crust, open crumb.", Price: 3.5, Image: "/images/menu/baguette.jpg", Category: "bread", Available: true},
	{ID: "blueberry-muffin", Name: "Blueberry Muffin", Description: "Wild blueberries and a crumble top.", Price: 3, Image: "/images/menu/blueberry-muffin.jpg", Category: "muffins", Available: true, Calories: intPtr(390)},
	{ID: "chocolate-chip-cookie", Name: "Chocolate Chip Cookie", Description: "Brown butter dough with sea salt.", Price: 2.75, Image: "/images/menu/cookie.jpg", Category: "cookies", Available: true, Popular: true, Calories: intPtr(240)},
	{ID: "carrot-cake", Name: "Carrot Cake Slice", Description: "Spiced sponge with cream cheese frosting.", Price: 5.5, Image: "/images/menu/carrot-cake.jpg", Category: "cakes", Available: true, Calories: intPtr(470)},
	{ID: "ham-gruyere", Name: "Ham & Gruyère", Description: "On a buttered baguette with Dijon.", Price: 8.5, Image: "/images/menu/ham-gruyere.jpg", Category: "sandwiches", Available: false},
}

// Fallback returns a copy of the bundled menu.
func Fallback() []MenuItem {
	return CloneItems(fallbackItems)
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
