// Package i18n holds the user-facing copy of the client and registers it with
// x/text/message so presentation hosts can render it in the user's language.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	KeyPasswordMismatch  = "auth.password_mismatch"
	KeyUnreachable       = "auth.unreachable"
	KeyServerFallback    = "auth.server_fallback"
	KeyUnknown           = "error.unknown"
	KeyLoginSuccess      = "auth.login_success"
	KeyRegisterSuccess   = "auth.register_success"
	KeyMissingToken      = "transactions.missing_token"
	KeyTransactionsEmpty = "transactions.empty"
	KeyFetchFailed       = "transactions.fetch_failed"
	KeyResponseTooLarge  = "error.response_too_large"
)

var (
	english = language.MustParse("en-US")
	russian = language.MustParse("ru-RU")
)

var catalogs = map[language.Tag]map[string]string{
	english: {
		KeyPasswordMismatch:  "Passwords do not match",
		KeyUnreachable:       "Could not reach the server. Check your connection and try again.",
		KeyServerFallback:    "The server rejected the request. Please try again.",
		KeyUnknown:           "Something went wrong. Please try again.",
		KeyLoginSuccess:      "Signed in successfully",
		KeyRegisterSuccess:   "Registration successful",
		KeyMissingToken:      "You are not signed in",
		KeyTransactionsEmpty: "No transactions yet",
		KeyFetchFailed:       "Could not load transactions",
		KeyResponseTooLarge:  "The server sent more data than the app can load.",
	},
	russian: {
		KeyPasswordMismatch:  "Пароли не совпадают",
		KeyUnreachable:       "Не удалось связаться с сервером. Проверьте подключение и попробуйте снова.",
		KeyServerFallback:    "Сервер отклонил запрос. Попробуйте снова.",
		KeyUnknown:           "Что-то пошло не так. Попробуйте снова.",
		KeyLoginSuccess:      "Вход выполнен",
		KeyRegisterSuccess:   "Регистрация прошла успешно",
		KeyMissingToken:      "Вы не вошли в систему",
		KeyTransactionsEmpty: "Транзакций пока нет",
		KeyFetchFailed:       "Не удалось загрузить транзакции",
		KeyResponseTooLarge:  "Сервер прислал больше данных, чем приложение может загрузить.",
	},
}

func init() {
	for tag, messages := range catalogs {
		tags := []language.Tag{tag}
		if base, _ := tag.Base(); base.String() != "und" {
			tags = append(tags, language.Make(base.String()))
		}
		for key, value := range messages {
			for _, t := range tags {
				// The printer treats catalog strings as formats.
				_ = message.SetString(t, key, strings.ReplaceAll(value, "%", "%%"))
			}
		}
	}
}

// Supported lists the locales with a catalog.
func Supported() []language.Tag {
	return []language.Tag{english, russian}
}

// Parse resolves a locale string to a supported tag, defaulting to English.
func Parse(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return english
	}
	return Normalize(tag)
}

// Normalize coerces any tag onto a supported one.
func Normalize(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	ruBase, _ := language.Russian.Base()
	if base == ruBase {
		return russian
	}
	return english
}

// Localizer renders catalog messages for one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for tag.
func New(tag language.Tag) *Localizer {
	tag = Normalize(tag)
	return &Localizer{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the localizer's language.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T returns the message for key, falling back to English and then to the key.
func (l *Localizer) T(key string) string {
	if l != nil && l.printer != nil {
		value := strings.TrimSpace(l.printer.Sprintf(key))
		if value != "" && value != key {
			return value
		}
	}
	if value, ok := catalogs[english][key]; ok {
		return value
	}
	return key
}
