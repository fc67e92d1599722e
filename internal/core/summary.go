package core

// CategoryTotal is the summed amount for one category label. The JSON and
// BSON shape mirrors a Mongo $group stage output.
type CategoryTotal struct {
	Category string  `json:"_id" bson:"_id"`
	Total    float64 `json:"total" bson:"total"`
}

// ExpenseList is the listing payload: expenses sorted by date descending
// plus the sum of their amounts.
type ExpenseList struct {
	Expenses []Expense `json:"expenses"`
	Total    float64   `json:"total"`
}

// GroupByCategory sums amounts per category. Categories appear in order of
// first occurrence.
func GroupByCategory(expenses []Expense) []CategoryTotal {
	index := make(map[string]int)
	sums := make([]Money, 0)
	out := make([]CategoryTotal, 0)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category})
			sums = append(sums, Zero())
		}
		sums[i] = sums[i].Add(FromFloat(e.Amount))
	}
	for i := range out {
		out[i].Total = sums[i].Float64()
	}
	return out
}
