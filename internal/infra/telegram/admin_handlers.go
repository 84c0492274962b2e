package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"household_finance/internal/app"
	"household_finance/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgUnauthorized  = "Erro: você não tem permissão para executar este comando."
	commandTimeout   = 2 * time.Minute
	timestampLayout  = "02/01 15:04"
	runErrorMaxRunes = 80
)

// RegisterAdminHandlers registers the operator commands. Every command is checked against the admin ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle("/tick", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/tick", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		summary, err := adminService.RunTickNow(cmdCtx, c.Sender().ID)
		if errors.Is(err, app.ErrTickInProgress) {
			handlerLogger.Info("Tick already running, manual tick skipped")
			return c.Send("Já existe um ciclo de notificações em andamento. Tente novamente em instantes.")
		}
		if err != nil {
			handlerLogger.WithError(err).Error("Manual tick failed")
			return c.Send(fmt.Sprintf("Falha ao executar o ciclo de notificações: %s", err.Error()))
		}
		handlerLogger.WithField("sent", summary.Sent).Info("Manual tick finished")
		return c.Send(formatTickSummary(summary))
	})

	b.Handle("/materialize", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/materialize", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Formato inválido. Use: /materialize <series_id>")
		}
		seriesID, err := uuid.Parse(args[0])
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid series id")
			return c.Send("Erro: series_id deve ser um UUID.")
		}
		handlerLogger = handlerLogger.WithField("series_id", seriesID)

		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if err := adminService.MaterializeSeries(cmdCtx, c.Sender().ID, seriesID); err != nil {
			handlerLogger.WithError(err).Error("Manual materialization failed")
			if errors.Is(err, app.ErrInvalidRecurrenceInterval) {
				return c.Send("Erro: a série tem intervalo de recorrência inválido.")
			}
			return c.Send(fmt.Sprintf("Falha ao gerar ocorrências: %s", err.Error()))
		}
		handlerLogger.Info("Series materialized")
		return c.Send(fmt.Sprintf("Ocorrências da série %s geradas.", seriesID))
	})

	b.Handle("/policies", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/policies", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		policies, err := adminService.ListActivePolicies(ctx, c.Sender().ID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list policies")
			return c.Send(fmt.Sprintf("Erro ao listar políticas: %s", err.Error()))
		}
		handlerLogger.WithField("policies_count", len(policies)).Info("Listed active policies")
		return c.Send(formatPolicies(policies))
	})

	b.Handle("/runs", func(c telebot.Context) error {
		handlerLogger := commandLogger(baseLogger, "/runs", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		limit := 0
		if args := c.Args(); len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return c.Send("Formato inválido. Use: /runs [quantidade]")
			}
			limit = n
		}

		runs, err := adminService.ListRecentRuns(ctx, c.Sender().ID, limit)
		if err != nil {
			if errors.Is(err, app.ErrInvalidRunLimit) {
				return c.Send("Quantidade deve estar entre 1 e 50.")
			}
			handlerLogger.WithError(err).Error("Failed to list runs")
			return c.Send(fmt.Sprintf("Erro ao listar envios: %s", err.Error()))
		}
		return c.Send(formatRuns(runs))
	})
}

func commandLogger(base *logrus.Entry, command string, c telebot.Context) *logrus.Entry {
	l := base.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
	l.Info("Command received")
	return l
}

func formatTickSummary(s app.TickSummary) string {
	return fmt.Sprintf(
		"Ciclo concluído.\nPolíticas avaliadas: %d (ignoradas: %d)\nCandidatos: %d, suprimidos: %d\nEnviados: %d, falhas: %d",
		s.PoliciesEvaluated, s.PoliciesSkipped, s.Candidates, s.Suppressed, s.Sent, s.Failed,
	)
}

func formatPolicies(policies []*notification.Policy) string {
	if len(policies) == 0 {
		return "Nenhuma política ativa."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Políticas ativas (%d):\n", len(policies))
	for _, p := range policies {
		fmt.Fprintf(&b, "\n%s\norg %s, %s/%s", p.ID, p.OrgID, p.Scope, p.Event)
		switch p.Event {
		case notification.EventOverdue:
			fmt.Fprintf(&b, ", %d dia(s) após", p.DaysOverdue.Int32)
		default:
			fmt.Fprintf(&b, ", %d dia(s) antes", p.DaysBefore.Int32)
		}
		if p.RepeatEveryMinutes.Valid {
			fmt.Fprintf(&b, ", repete a cada %d min", p.RepeatEveryMinutes.Int32)
		}
		if p.MaxOccurrences.Valid {
			fmt.Fprintf(&b, ", máx %d", p.MaxOccurrences.Int32)
		}
		if p.QuietHoursStart.Valid && p.QuietHoursEnd.Valid {
			fmt.Fprintf(&b, ", silêncio %s-%s", p.QuietHoursStart.String, p.QuietHoursEnd.String)
		}
		fmt.Fprintf(&b, " (%s)", p.Timezone)
	}
	return b.String()
}

func formatRuns(runs []*notification.Run) string {
	if len(runs) == 0 {
		return "Nenhum envio registrado."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Últimos envios (%d):\n", len(runs))
	for _, r := range runs {
		status := "✅"
		if r.Status == notification.RunStatusError {
			status = "❌"
		}
		fmt.Fprintf(&b, "%s %s %s %s", status, r.CreatedAt.UTC().Format(timestampLayout), r.Channel, r.ResourceID)
		if r.Error.Valid {
			fmt.Fprintf(&b, ": %s", shorten(r.Error.String, runErrorMaxRunes))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shorten(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
