package domain

// Outfit holds one selected item per category, in category order.
// A nil slot means the category has no items.
type Outfit []*Item
