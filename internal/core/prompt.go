package core

import (
	"fmt"
	"strings"
)

// PromptBuilder assembles the system prompt for LLM calls. The prompt is
// rebuilt per request so it always reflects the current lead state, the
// detected intent and the running promotions.
type PromptBuilder struct {
	catalog          *Catalog
	promotions       *Promotions
	captureThreshold int
}

// NewPromptBuilder creates a builder over the catalog and promotion calendar.
// captureThreshold is the number of assistant replies allowed before the
// capture instructions turn insistent.
func NewPromptBuilder(catalog *Catalog, promotions *Promotions, captureThreshold int) *PromptBuilder {
	return &PromptBuilder{catalog: catalog, promotions: promotions, captureThreshold: captureThreshold}
}

const personaPrompt = `Eres Salma AI, asesora virtual de ventas de BYD Lindavista CLEBER en Guadalupe, Nuevo Leon, Mexico.

PERSONALIDAD:
- Calida, profesional y entusiasta de la movilidad electrica
- Respondes siempre en espanol mexicano, tuteando al cliente
- Respuestas concretas: maximo 4 parrafos cortos
- Nunca inventas precios, promociones ni datos tecnicos que no esten en este prompt

UBICACION Y HORARIOS:
- Avenida las Americas Norte & Malaga, 67130 Guadalupe, N.L.
- Lunes a Sabado, 9:00 AM - 7:00 PM
- WhatsApp: +52 81 2027 2752`

const pricingPrompt = `PRECIOS Y FINANCIAMIENTO (solo comparte cuando el cliente lo pida):
- Dolphin Mini: desde $399,800 MXN
- Yuan Pro: desde $489,900 MXN
- King: desde $549,000 MXN
- Song Plus: desde $669,000 MXN
- Seal: desde $748,800 MXN
- Sealion 7: desde $888,800 MXN
- Shark: desde $899,980 MXN

Financiamiento: tasas desde 9.9% anual, enganche desde 10%, plazos 12-72 meses.
Toda cotizacion formal la prepara un asesor humano; tu solo das rangos.`

const leadCapturePrompt = `CAPTURA DE DATOS:
Tu objetivo comercial es conseguir nombre y telefono (o email) del cliente de forma natural, nunca insistente. Pide los datos cuando ofrezcas una cotizacion, prueba de manejo o seguimiento.

Cuando el cliente comparta datos de contacto, agrega AL FINAL de tu respuesta un bloque con este formato exacto:

[LEAD_DATA]
nombre: <nombre completo>
telefono: <solo digitos, minimo 10>
email: <correo>
modelo: <modelo de interes>
[/LEAD_DATA]

Reglas del bloque:
- Incluye solo los campos que el cliente dijo explicitamente, omite el resto
- Nunca inventes ni adivines un dato
- El telefono debe tener al menos 10 digitos o no lo incluyas
- El bloque es invisible para el cliente, no lo menciones`

const captureEscalation = `CRITICO: Este es tu ULTIMO mensaje sin datos de contacto. DEBES obtener nombre y telefono AHORA, ofreciendo una razon convincente (cotizacion personalizada, calculo de ahorro, prueba de manejo).`

// Build assembles the system prompt for the current turn. assistantMessages
// is how many replies the assistant has already sent in this conversation;
// once it reaches the capture threshold an incomplete lead gets the
// insistent capture instructions.
func (b *PromptBuilder) Build(intent IntentResult, lead *Lead, meta ConversationMeta, assistantMessages int) string {
	var sections []string
	sections = append(sections, personaPrompt)
	sections = append(sections, "CATALOGO ACTUAL:\n"+b.catalog.Summary())

	if urgency := b.promotions.UrgencyMessage(); urgency != "" {
		sections = append(sections, "PROMOCIONES VIGENTES:\n"+b.promotionLines()+"\n"+urgency)
	}

	if intent.RequiresPremiumInfo {
		sections = append(sections, pricingPrompt)
	}

	if lead.Complete() {
		sections = append(sections, b.knownLeadSection(lead, meta))
	} else {
		sections = append(sections, leadCapturePrompt)
		if b.captureThreshold > 0 && assistantMessages >= b.captureThreshold-1 {
			sections = append(sections, captureEscalation)
		}
	}

	return strings.Join(sections, "\n\n")
}

// knownLeadSection replaces the capture instructions once the lead is
// complete: the model should use the name, never re-ask for data.
func (b *PromptBuilder) knownLeadSection(lead *Lead, meta ConversationMeta) string {
	var sb strings.Builder
	sb.WriteString("CLIENTE IDENTIFICADO:\n")
	fmt.Fprintf(&sb, "- Nombre: %s\n", lead.Name)
	if lead.Phone != "" {
		fmt.Fprintf(&sb, "- Telefono: %s\n", lead.Phone)
	}
	if lead.Email != "" {
		fmt.Fprintf(&sb, "- Email: %s\n", lead.Email)
	}
	if meta.ModelInterest != "" {
		fmt.Fprintf(&sb, "- Modelo de interes: %s\n", meta.ModelInterest)
	}
	sb.WriteString("\nYa tienes sus datos: usa su nombre, NO vuelvas a pedir contacto y no agregues bloques [LEAD_DATA].")
	return sb.String()
}

func (b *PromptBuilder) promotionLines() string {
	var lines []string
	for _, promo := range b.promotions.All() {
		lines = append(lines, "- "+promo.Description)
	}
	return strings.Join(lines, "\n")
}
