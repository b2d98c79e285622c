package recipe

import (
	"sort"
	"strconv"
	"strings"

	"foodgram/domain"
)

type shoppingKey struct {
	name string
	unit string
}

// AggregateShoppingList sums cart lines sharing a name and a unit.
// Items come back sorted by name in descending byte order.
func AggregateShoppingList(lines []domain.CartLine) []domain.ShoppingListItem {
	totals := make(map[shoppingKey]int, len(lines))
	for _, line := range lines {
		totals[shoppingKey{name: line.Name, unit: line.MeasurementUnit}] += line.Amount
	}

	items := make([]domain.ShoppingListItem, 0, len(totals))
	for key, total := range totals {
		items = append(items, domain.ShoppingListItem{
			Name:            key.name,
			TotalAmount:     total,
			MeasurementUnit: key.unit,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name > items[j].Name
		}
		return items[i].MeasurementUnit > items[j].MeasurementUnit
	})
	return items
}

// RenderShoppingList formats items as the downloadable text file.
func RenderShoppingList(items []domain.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(domain.ShoppingListHeader)
	for _, item := range items {
		b.WriteString("\n")
		b.WriteString(item.Name)
		b.WriteString(" - ")
		b.WriteString(strconv.Itoa(item.TotalAmount))
		b.WriteString(" ")
		b.WriteString(item.MeasurementUnit)
	}
	return b.String()
}

func ShoppingListFileName(username string) string {
	return username + "_shopping_list.txt"
}
