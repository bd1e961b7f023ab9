package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is a compact view of a set of expenses.
type Summary struct {
	Count      int
	Total      Money
	ByCategory []CategoryAmount // first-seen order
}

// Summarize aggregates expenses per category, keeping the order in which
// categories first appear.
func Summarize(expenses []Expense) Summary {
	s := Summary{Count: len(expenses)}
	idx := make(map[string]int)
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		i, ok := idx[e.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: e.Category})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(e.Amount)
	}
	return s
}
