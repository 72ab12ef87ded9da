package report

import "github.com/Proton-105/worktime-bot/internal/domain"

// MenuChoice identifies what a report menu option selects.
type MenuChoice int

const (
	ChoiceAll MenuChoice = iota
	ChoiceMonth
	ChoiceCancel
)

// MenuOption is one selectable entry of the report menu.
type MenuOption struct {
	Choice MenuChoice
	Month  domain.MonthKey
}

// MenuOptions builds the report menu: all-time first, one entry per month, cancel last.
func MenuOptions(months []domain.MonthKey) []MenuOption {
	options := make([]MenuOption, 0, len(months)+2)
	options = append(options, MenuOption{Choice: ChoiceAll})
	for _, m := range months {
		options = append(options, MenuOption{Choice: ChoiceMonth, Month: m})
	}
	return append(options, MenuOption{Choice: ChoiceCancel})
}
