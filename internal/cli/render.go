package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/Veraticus/spicebot/internal/model"
)

// RenderParse shows what the chatbot understood from message.
func RenderParse(message string, result chatbot.ParseResult) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s%s\n", LabelStyle.Render(label), value)
	}

	row("Message", message)
	row("Intent", SuccessStyle.Render(string(result.Intent)))
	row("Confidence", ConfidenceStyle(result.Confidence).Render(fmt.Sprintf("%.2f", result.Confidence)))

	e := result.Entities
	if e.IsEmpty() {
		b.WriteString(SubtleStyle.Render("No entities extracted"))
		return RenderBox(RobotIcon+" Parse result", strings.TrimRight(b.String(), "\n"))
	}
	if e.HasAmount() {
		row("Amount", chatbot.FormatAmount(*e.Amount)+" VNĐ")
	}
	if e.TransactionType != "" {
		row("Type", typeName(e.TransactionType))
	}
	if e.HasCategory() {
		row("Category", e.Category)
	}
	if e.Date != "" {
		row("Date", e.Date)
	}
	if e.DateText != "" {
		row("Date (as written)", WarningStyle.Render(e.DateText))
	}
	return RenderBox(RobotIcon+" Parse result", strings.TrimRight(b.String(), "\n"))
}

func typeName(t model.TransactionType) string {
	if t == model.TransactionIncome {
		return IncomeStyle.Render("income")
	}
	return ExpenseStyle.Render("expense")
}
