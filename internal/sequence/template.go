// Package sequence dispara a sequência de mensagens de uma campanha para
// um lead, no máximo uma vez por par lead/campanha.
package sequence

import (
	"regexp"
	"strings"
)

var (
	tokenName    = regexp.MustCompile(`(?i)\{\{\s*nome\s*\}\}`)
	tokenCompany = regexp.MustCompile(`(?i)\{\{\s*empresa\s*\}\}`)
)

// ApplyTemplate substitui os tokens {{nome}} e {{empresa}}, sem
// diferenciar caixa nem espaços internos. Tokens desconhecidos ficam
// como estão.
func ApplyTemplate(text, name, company string) string {
	out := tokenName.ReplaceAllString(text, name)
	return tokenCompany.ReplaceAllString(out, company)
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone converte o número para o formato E.164 brasileiro sem o
// sinal de mais. Números de 10 dígitos ganham o nono dígito após o DDD.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "55") && len(digits) >= 12 {
		return digits
	}
	digits = strings.TrimLeft(digits, "0")
	if len(digits) == 10 {
		digits = digits[:2] + "9" + digits[2:]
	}
	return "55" + digits
}
