package printing

import (
	"fmt"
	"strings"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
)

const divider = "--------------------------------"

// Receipt is the print-ready stub returned to the issuing kiosk. The engine
// only produces the text; the kiosk owns the physical printer.
type Receipt struct {
	TenantName string
	Ticket     models.Ticket
	Position   int
}

func Text(r Receipt) string {
	var b strings.Builder
	if r.TenantName != "" {
		b.WriteString(r.TenantName + "\n")
	}
	b.WriteString(divider + "\n")
	b.WriteString("SENHA " + r.Ticket.TicketCode + "\n")
	if r.Ticket.ServiceName != "" {
		b.WriteString(r.Ticket.ServiceName + "\n")
	}
	if r.Ticket.Priority == models.PriorityPreferential {
		b.WriteString("ATENDIMENTO PREFERENCIAL\n")
	}
	b.WriteString(r.Ticket.IssuedAt.Format("02/01/2006 15:04") + "\n")
	if r.Position > 0 {
		b.WriteString(fmt.Sprintf("Pessoas à frente: %d\n", r.Position-1))
	}
	b.WriteString(divider + "\n")
	b.WriteString("Aguarde ser chamado\n")
	return b.String()
}
