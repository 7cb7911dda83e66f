// Package i18n holds the user-facing notification messages in Brazilian
// Portuguese and English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type Key string

const (
	CitizenSaved        Key = "citizen.saved"
	CitizenRemoved      Key = "citizen.removed"
	CitizenRemoveFailed Key = "citizen.remove_failed"
	CustomerSaved       Key = "customer.saved"
	CustomerRemoved     Key = "customer.removed"
	CustomerRemoveFail  Key = "customer.remove_failed"
	SaveFailed          Key = "save_failed"
	UserSaved           Key = "user.saved"
	UserRemoved         Key = "user.removed"
	UserFailed          Key = "user.failed"
	PasswordChanged     Key = "user.password_changed"
	LoginFailed         Key = "login.failed"
	FileUploaded        Key = "file.uploaded"
	FileRemoved         Key = "file.removed"
	FileFailed          Key = "file.failed"
	SignInRequired      Key = "session.required"
)

var messages = map[Key][2]string{
	CitizenSaved:        {"Cidadão salvo com sucesso!", "Citizen saved successfully!"},
	CitizenRemoved:      {"Cidadão removido com sucesso.", "Citizen removed successfully."},
	CitizenRemoveFailed: {"Erro ao remover cidadão!", "Error removing citizen!"},
	CustomerSaved:       {"Cliente salvo com sucesso!", "Customer saved successfully!"},
	CustomerRemoved:     {"Cliente removido com sucesso.", "Customer removed successfully."},
	CustomerRemoveFail:  {"Erro ao remover cliente!", "Error removing customer!"},
	SaveFailed:          {"Erro ao salvar dados!", "Error saving data!"},
	UserSaved:           {"Usuário salvo com sucesso!", "User saved successfully!"},
	UserRemoved:         {"Usuário removido!", "User removed!"},
	UserFailed:          {"Erro ao salvar usuário!", "Error saving user!"},
	PasswordChanged:     {"Senha alterada com sucesso!", "Password changed successfully!"},
	LoginFailed:         {"Erro no login", "Login failed"},
	FileUploaded:        {"Arquivo enviado com sucesso!", "File uploaded successfully!"},
	FileRemoved:         {"Arquivo removido!", "File removed!"},
	FileFailed:          {"Erro ao processar arquivo!", "Error processing file!"},
	SignInRequired:      {"Faça login para continuar.", "Sign in to continue."},
}

// supported lists the catalog languages; the first one is the fallback.
var supported = []language.Tag{language.BrazilianPortuguese, language.English}

var (
	matcher  = language.NewMatcher(supported)
	printers = newPrinters()
)

func newPrinters() []*message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for key, texts := range messages {
		for i, tag := range supported {
			_ = b.SetString(tag, string(key), texts[i])
		}
	}
	out := make([]*message.Printer, len(supported))
	for i, tag := range supported {
		out[i] = message.NewPrinter(tag, message.Catalog(b))
	}
	return out
}

// Localizer renders messages in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// FromAcceptLanguage picks the best supported language for an
// Accept-Language header value.
func FromAcceptLanguage(header string) Localizer {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Localizer{tag: supported[0], printer: printers[0]}
	}
	_, index, _ := matcher.Match(tags...)
	return Localizer{tag: supported[index], printer: printers[index]}
}

func (l Localizer) Tag() language.Tag {
	return l.tag
}

func (l Localizer) T(key Key) string {
	if l.printer == nil {
		l = FromAcceptLanguage("")
	}
	return l.printer.Sprintf(string(key))
}
