package mailer

import (
	"fmt"
	"html"
	"net/url"
)

const layout = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 40px auto; background: #ffffff; padding: 30px; border-radius: 10px;">
%s
<p style="color: #666666; font-size: 12px;">Se você não solicitou isso, ignore este e-mail.</p>
</div>
</body>
</html>`

func link(baseURL, path, token string) string {
	return baseURL + path + "?token=" + url.QueryEscape(token)
}

// ConfirmationEmail builds the subject and body of the sign-up confirmation message.
func ConfirmationEmail(baseURL, name, token string) (string, string) {
	href := link(baseURL, "/auth/confirm-email", token)
	body := fmt.Sprintf(`<h1>Bem-vindo!</h1>
<p>Olá %s,</p>
<p>Para ativar sua conta, confirme seu e-mail:</p>
<p><a href="%s">Confirmar E-mail</a></p>
<p>Este link expira em 24 horas.</p>`, html.EscapeString(name), html.EscapeString(href))
	return "Confirme seu E-mail", fmt.Sprintf(layout, body)
}

// PasswordResetEmail builds the password reset message.
func PasswordResetEmail(baseURL, name, token string) (string, string) {
	href := link(baseURL, "/auth/reset-password", token)
	body := fmt.Sprintf(`<h1>Redefinição de senha</h1>
<p>Olá %s,</p>
<p>Recebemos uma solicitação para redefinir sua senha:</p>
<p><a href="%s">Redefinir Senha</a></p>
<p>Este link expira em 1 hora.</p>`, html.EscapeString(name), html.EscapeString(href))
	return "Redefinição de Senha", fmt.Sprintf(layout, body)
}
