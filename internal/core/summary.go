package core

// CategoryAmount represents an amount aggregated by category reference.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// PeriodSummary is the balance projection of one month bucket. Entries
// consumed by an anticipation no longer exist and never contribute.
type PeriodSummary struct {
	Period     Period
	Income     Money
	Expense    Money
	Net        Money
	Settled    Money
	Pending    Money
	Entries    int
	ByCategory []CategoryAmount
}

// Summarize folds instances of a single period into a summary. Transfer legs
// cancel out in Net and are excluded from Income/Expense.
func Summarize(p Period, items []Instance) PeriodSummary {
	s := PeriodSummary{Period: p}
	byCat := map[string]int64{}
	var order []string
	for _, it := range items {
		if it.Period != p {
			continue
		}
		s.Entries++
		s.Net = s.Net.Add(it.Amount)
		if it.Settled {
			s.Settled = s.Settled.Add(it.Amount)
		} else {
			s.Pending = s.Pending.Add(it.Amount)
		}
		switch it.Type {
		case Income:
			s.Income = s.Income.Add(it.Amount)
		case Expense:
			s.Expense = s.Expense.Add(it.Amount)
		case Transfer:
			continue
		}
		if _, ok := byCat[it.CategoryID]; !ok {
			order = append(order, it.CategoryID)
		}
		byCat[it.CategoryID] += it.Amount.Cents
	}
	for _, id := range order {
		s.ByCategory = append(s.ByCategory, CategoryAmount{CategoryID: id, Amount: Money{Cents: byCat[id]}})
	}
	return s
}
