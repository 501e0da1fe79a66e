package tts

import (
	"fmt"
	"strings"
	"unicode"
)

var digitWords = map[rune]string{
	'0': "zero",
	'1': "um",
	'2': "dois",
	'3': "três",
	'4': "quatro",
	'5': "cinco",
	'6': "seis",
	'7': "sete",
	'8': "oito",
	'9': "nove",
}

// SpellTicketCode reads a code the way it is announced: prefix letters as-is,
// digits spelled out one by one. "A-034" becomes "A zero três quatro".
func SpellTicketCode(code string) string {
	var parts []string
	for _, r := range code {
		switch {
		case unicode.IsDigit(r):
			parts = append(parts, digitWords[r])
		case unicode.IsLetter(r):
			parts = append(parts, string(r))
		}
	}
	return strings.Join(parts, " ")
}

// CallText builds the spoken announcement for a call. Location is the counter
// name when bound, otherwise the service name.
func CallText(ticketCode, location string) string {
	spelled := SpellTicketCode(ticketCode)
	if location == "" {
		return fmt.Sprintf("Senha %s.", spelled)
	}
	return fmt.Sprintf("Senha %s, %s.", spelled, location)
}
