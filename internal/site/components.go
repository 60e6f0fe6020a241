package site

import (
	"fmt"
	"strings"
)

// AlertKind is the visual severity of an Alert.
type AlertKind string

const (
	AlertInfo    AlertKind = "info"
	AlertSuccess AlertKind = "success"
	AlertWarning AlertKind = "warning"
	AlertError   AlertKind = "error"
)

// Alert is an inline dismissible message.
type Alert struct {
	Kind        AlertKind
	Title       string
	Message     string
	Dismissible bool
}

// NewAlert builds an alert, falling back to info for unknown kinds.
func NewAlert(kind, message string) Alert {
	k := AlertKind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case AlertInfo, AlertSuccess, AlertWarning, AlertError:
	default:
		k = AlertInfo
	}
	return Alert{Kind: k, Message: message, Dismissible: true}
}

// Modal is a dialog rendered closed unless Open is set.
type Modal struct {
	ID    string
	Title string
	Body  string
	Open  bool
}

// LoaderSize selects the spinner dimensions.
type LoaderSize string

const (
	LoaderSmall  LoaderSize = "sm"
	LoaderMedium LoaderSize = "md"
	LoaderLarge  LoaderSize = "lg"
)

// Loader is a spinner placeholder shown while a region loads.
type Loader struct {
	Size  LoaderSize
	Label string
}

// ContactForm carries the submitted contact fields and per-field errors back
// to the page.
type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
	Errors  map[string]string
	Sent    bool
}

// FieldError returns the validation message for field, if any.
func (f ContactForm) FieldError(field string) string {
	if f.Errors == nil {
		return ""
	}
	return f.Errors[field]
}

// Stat is a headline figure on the Home and Impact pages.
type Stat struct {
	Label string
	Value string
}

// FormatCount renders large counts as 1.2k / 3.4M.
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "k"
	}
	return fmt.Sprintf("%d", n)
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
