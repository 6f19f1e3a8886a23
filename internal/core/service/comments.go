package service

import (
	"fmt"
	"strings"
)

// commentSeparator joins audit comments on the transactionComments custom
// field. Comments are append-only, never overwritten.
const commentSeparator = "\n\n---\n"

const defaultLocale = "en"

// CommentComposer builds localized audit-trail text for webhook events.
// Output depends only on the inputs, so a redelivered event composes the
// identical comment.
type CommentComposer struct{}

// NewCommentComposer creates a comment composer.
func NewCommentComposer() *CommentComposer {
	return &CommentComposer{}
}

var commentTemplates = map[string]map[string]string{
	"en": {
		"payment":                 "NovaPay transaction {tid} initiated with payment type {payment_type}.",
		"capture":                 "The transaction {tid} has been captured successfully.",
		"cancel":                  "The transaction {tid} has been canceled.",
		"refund":                  "Refund has been initiated for the transaction {tid} with the amount {amount}.",
		"refund_new_tid":          "Refund has been initiated for the transaction {tid} with the amount {amount}. New transaction reference for the refund: {refund_tid}.",
		"credit":                  "Credit has been received for the transaction {tid} with the amount {amount}.",
		"chargeback":              "Chargeback received for the transaction {tid} with the amount {amount}.",
		"reminder":                "Payment reminder {reminder} has been sent to the customer.",
		"collection":              "The transaction {tid} has been submitted to the collection agency. Collection reference: {reference}.",
		"update_schedule":         "The transaction {tid} has been updated with amount {amount} and due date {due_date}.",
		"update_pending_complete": "The transaction {tid} is no longer pending and has been completed.",
		"update_onhold_complete":  "The on-hold transaction {tid} has been completed.",
		"update_canceled":         "The transaction {tid} has been canceled.",
		"update_confirmed":        "The on-hold transaction {tid} has been confirmed.",
		"update_generic":          "The transaction {tid} has been updated to status {status}.",
	},
	"de": {
		"payment":                 "NovaPay-Transaktion {tid} wurde mit Zahlungsart {payment_type} angelegt.",
		"capture":                 "Die Transaktion {tid} wurde erfolgreich eingezogen.",
		"cancel":                  "Die Transaktion {tid} wurde storniert.",
		"refund":                  "Für die Transaktion {tid} wurde eine Rückerstattung in Höhe von {amount} veranlasst.",
		"refund_new_tid":          "Für die Transaktion {tid} wurde eine Rückerstattung in Höhe von {amount} veranlasst. Neue Transaktionsreferenz für die Rückerstattung: {refund_tid}.",
		"credit":                  "Für die Transaktion {tid} ist eine Gutschrift in Höhe von {amount} eingegangen.",
		"chargeback":              "Für die Transaktion {tid} ist eine Rückbuchung in Höhe von {amount} eingegangen.",
		"reminder":                "Zahlungserinnerung {reminder} wurde an den Kunden gesendet.",
		"collection":              "Die Transaktion {tid} wurde an das Inkassobüro übergeben. Inkasso-Referenz: {reference}.",
		"update_schedule":         "Die Transaktion {tid} wurde aktualisiert: Betrag {amount}, Fälligkeitsdatum {due_date}.",
		"update_pending_complete": "Die Transaktion {tid} ist nicht mehr ausstehend und wurde abgeschlossen.",
		"update_onhold_complete":  "Die zurückgestellte Transaktion {tid} wurde abgeschlossen.",
		"update_canceled":         "Die Transaktion {tid} wurde storniert.",
		"update_confirmed":        "Die zurückgestellte Transaktion {tid} wurde bestätigt.",
		"update_generic":          "Die Transaktion {tid} wurde auf den Status {status} aktualisiert.",
	},
}

// Compose renders the template for a comment key in the given locale,
// falling back to English for unknown locales or missing keys.
func (c *CommentComposer) Compose(locale, key string, vars map[string]string) string {
	loc := normalizeLocale(locale)
	tpl, ok := commentTemplates[loc][key]
	if !ok {
		tpl = commentTemplates[defaultLocale][key]
	}
	return renderTemplate(tpl, vars)
}

// normalizeLocale reduces a language tag like "de-DE" to a supported locale.
func normalizeLocale(locale string) string {
	locale = strings.ToLower(locale)
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		locale = locale[:idx]
	}
	if _, ok := commentTemplates[locale]; !ok {
		return defaultLocale
	}
	return locale
}

// renderTemplate substitutes {name} placeholders from vars.
func renderTemplate(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// formatAmount renders a minor-unit amount with its currency, e.g. "10.99 EUR".
func formatAmount(minorUnits int64, currency string) string {
	s := fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
	if minorUnits < 0 {
		s = fmt.Sprintf("-%d.%02d", -minorUnits/100, (-minorUnits)%100)
	}
	if currency == "" {
		return s
	}
	return s + " " + currency
}
