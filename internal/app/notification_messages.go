package app

import (
	"fmt"
	"strings"
	"time"

	"household_finance/internal/domain/mail"
	"household_finance/internal/domain/notification"
	"household_finance/internal/domain/recurrence"
	"household_finance/internal/domain/transaction"
)

const dateLayoutBR = "02/01/2006"

// buildAlertMessage renders the pt-BR email body for a due or overdue occurrence.
// Dates are shown in the policy timezone. The recipient is filled in by the caller.
func buildAlertMessage(p *notification.Policy, item *transaction.DueItem, now time.Time) mail.Message {
	loc := notification.ResolveLocation(p.Timezone)
	due := item.Occurrence.DueDate.In(loc).Format(dateLayoutBR)

	var subject string
	switch p.Event {
	case notification.EventOverdue:
		subject = fmt.Sprintf("Atraso: %s venceu em %s", item.SeriesTitle, due)
	default:
		subject = fmt.Sprintf("Lembrete: %s vence em %s", item.SeriesTitle, due)
	}

	var b strings.Builder
	if item.OwnerName != "" {
		fmt.Fprintf(&b, "Olá, %s!\n\n", item.OwnerName)
	} else {
		b.WriteString("Olá!\n\n")
	}
	switch p.Event {
	case notification.EventOverdue:
		days := int(now.Sub(item.Occurrence.DueDate).Hours() / 24)
		fmt.Fprintf(&b, "A %s \"%s\" está em atraso há %d dia(s).\n\n", typeLabel(item.SeriesType), item.SeriesTitle, days)
	default:
		fmt.Fprintf(&b, "A %s \"%s\" vence em breve.\n\n", typeLabel(item.SeriesType), item.SeriesTitle)
	}
	fmt.Fprintf(&b, "Valor: %s\n", transaction.FormatCents(item.Occurrence.Amount))
	fmt.Fprintf(&b, "Vencimento: %s\n", due)
	if item.InstallmentsTotal.Valid {
		fmt.Fprintf(&b, "Parcela: %d de %d\n", item.Occurrence.InstallmentIndex, item.InstallmentsTotal.Int32)
	}
	if item.RecurrenceType != recurrence.TypeNone {
		fmt.Fprintf(&b, "Recorrência: a cada %s\n", recurrence.HumanizeInterval(item.RecurrenceType, item.RecurrenceInterval))
	}
	if item.Occurrence.Description.Valid && item.Occurrence.Description.String != "" {
		fmt.Fprintf(&b, "Descrição: %s\n", item.Occurrence.Description.String)
	}

	return mail.Message{Subject: subject, Text: b.String()}
}

func typeLabel(t transaction.Type) string {
	if t == transaction.TypeIncome {
		return "receita"
	}
	return "despesa"
}
