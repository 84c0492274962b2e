// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"household_finance/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if adminService.IsAdmin(senderID) {
			return c.Send(fmt.Sprintf("Olá, %s! O worker de notificações está no ar. Use /help para ver os comandos.", c.Sender().FirstName))
		}
		logCtx.Info("User is not the operator")
		return c.Send("Este bot é de uso interno da equipe de operação.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if !adminService.IsAdmin(senderID) {
			return c.Send("Nenhum comando disponível para você.")
		}
		return c.Send(adminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Comandos do operador:\n\n")
	helpText.WriteString("`/tick`\n - Executa agora um ciclo de notificações.\n\n")
	helpText.WriteString("`/materialize <series_id>`\n - Gera as ocorrências futuras de uma série.\n\n")
	helpText.WriteString("`/policies`\n - Lista as políticas de notificação ativas.\n\n")
	helpText.WriteString(fmt.Sprintf("`/runs [n]`\n - Mostra os últimos envios (padrão %d).\n\n", app.DefaultRecentRuns))
	helpText.WriteString("`/help`\n - Mostra esta mensagem.")
	return helpText.String()
}
