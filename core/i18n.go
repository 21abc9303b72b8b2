package core

import (
	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
)

const DefaultLocale = "fr"

var SupportedLocales = []string{"fr", "en", "ar"}

func IsSupportedLocale(locale string) bool {
	for _, l := range SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// IsRTL reports whether locale is written right-to-left.
func IsRTL(locale string) bool { return locale == "ar" }

// messages: {key: {locale: text}}; params are `{0}`, `{1}`...
var messages = map[string]map[string]string{
	"receipt":          {"fr": "Reçu", "en": "Receipt", "ar": "إيصال"},
	"number":           {"fr": "N°", "en": "No.", "ar": "رقم"},
	"date":             {"fr": "Date", "en": "Date", "ar": "التاريخ"},
	"client":           {"fr": "Client", "en": "Client", "ar": "العميل"},
	"description":      {"fr": "Description", "en": "Description", "ar": "الوصف"},
	"amount":           {"fr": "Montant", "en": "Amount", "ar": "المبلغ"},
	"total":            {"fr": "TOTAL", "en": "TOTAL", "ar": "المجموع"},
	"payment_method":   {"fr": "Mode de paiement", "en": "Payment method", "ar": "طريقة الدفع"},
	"payment":          {"fr": "Paiement", "en": "Payment", "ar": "الدفع"},
	"payment.cash":     {"fr": "Espèces", "en": "Cash", "ar": "نقدا"},
	"payment.card":     {"fr": "Carte", "en": "Card", "ar": "بطاقة"},
	"payment.transfer": {"fr": "Virement", "en": "Transfer", "ar": "تحويل"},
	"payment.check":    {"fr": "Chèque", "en": "Check", "ar": "شيك"},
	"phone":            {"fr": "Tél", "en": "Tel", "ar": "الهاتف"},
	"tax_id":           {"fr": "ICE/SIRET", "en": "ICE/SIRET", "ar": "ICE/SIRET"},
	"email":            {"fr": "Email", "en": "Email", "ar": "البريد الإلكتروني"},
	"whatsapp":         {"fr": "WhatsApp", "en": "WhatsApp", "ar": "واتساب"},
	"thank_you": {
		"fr": "Merci pour votre confiance !",
		"en": "Thank you for your business!",
		"ar": "شكرا لثقتكم!",
	},
	// placeholders must appear in ascending order.
	// {0}: client name, {1}: receipt number, {2}: company name, {3}: amount
	"share_message": {
		"fr": "Bonjour {0},\n\nVeuillez trouver votre reçu {1} de la part de {2}.\nMontant : {3}\n\nMerci pour votre confiance !",
		"en": "Hello {0},\n\nPlease find your receipt {1} from {2}.\nAmount: {3}\n\nThank you for your business!",
		"ar": "مرحبا {0}،\n\nتجدون إيصالكم {1} من {2}.\nالمبلغ: {3}\n\nشكرا لثقتكم!",
	},
	"email_body": {
		"fr": "Bonjour {0},\n\nVous trouverez ci-joint votre reçu {1}.\n\nCordialement,\n{2}",
		"en": "Hello {0},\n\nPlease find attached your receipt {1}.\n\nKind regards,\n{2}",
		"ar": "مرحبا {0}،\n\nتجدون مرفقا إيصالكم {1}.\n\nمع أطيب التحيات،\n{2}",
	},
}

// Translations holds the document & message translators for every supported locale.
type Translations struct {
	uni *ut.UniversalTranslator
}

func NewTranslations() *Translations {
	_fr := fr.New()
	uni := ut.New(_fr, _fr, en.New(), ar.New())
	for key, texts := range messages {
		for locale, text := range texts {
			if trans, found := uni.GetTranslator(locale); found {
				_ = trans.Add(key, text, false)
			}
		}
	}
	return &Translations{uni: uni}
}

// T translates key into locale, falling back to the default locale then to the key itself.
func (tr *Translations) T(locale, key string, params ...string) string {
	if !IsSupportedLocale(locale) {
		locale = DefaultLocale
	}
	trans, _ := tr.uni.GetTranslator(locale)
	if s, err := trans.T(key, params...); err == nil {
		return s
	}
	if locale != DefaultLocale {
		return tr.T(DefaultLocale, key, params...)
	}
	return key
}
