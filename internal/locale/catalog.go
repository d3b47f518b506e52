// Package locale resolves error categories to user-facing messages in
// the caller's language, with English as the guaranteed fallback.
package locale

import (
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"

	"github.com/errata-io/errata/backend/internal/apperror"
)

// DefaultLocale is always resolvable and backs every lookup that misses.
const DefaultLocale = "en"

// fallbackMessage is the message of last resort when even the default
// catalog cannot serve a key.
const fallbackMessage = "An unexpected error occurred. Please try again later."

// Config describes the catalog's active locale selection.
type Config struct {
	Locale   string
	Fallback string
}

// Catalog maps (category, severity) to localized message templates.
// Templates use positional {0} parameters; CategoryMessage feeds them
// from named context keys (see paramOrder).
type Catalog struct {
	uni    *ut.UniversalTranslator
	trans  ut.Translator
	locale string
}

// templates per locale. The ".critical" variants override the base entry
// when severity reaches CRITICAL.
var entries = map[string]map[string]string{
	"en": {
		"errors.validation":                "The {0} you provided is invalid. Please review it and try again.",
		"errors.database":                  "We could not save your changes. Please try again.",
		"errors.database.critical":         "Our storage systems are experiencing issues. Please try again later.",
		"errors.auth":                      "You need to sign in to continue.",
		"errors.business_logic":            "This action is not allowed: {0}.",
		"errors.external_service":          "The {0} service is currently unavailable. Please try again later.",
		"errors.external_service.critical": "A required external service is down. Please try again later.",
		"errors.internal":                  "Something went wrong on our side. Please try again later.",
	},
	"es": {
		"errors.validation":                "El valor de {0} no es válido. Revísalo e inténtalo de nuevo.",
		"errors.database":                  "No pudimos guardar los cambios. Inténtalo de nuevo.",
		"errors.database.critical":         "Nuestros sistemas de almacenamiento tienen problemas. Inténtalo más tarde.",
		"errors.auth":                      "Debes iniciar sesión para continuar.",
		"errors.business_logic":            "Esta acción no está permitida: {0}.",
		"errors.external_service":          "El servicio {0} no está disponible en este momento. Inténtalo más tarde.",
		"errors.external_service.critical": "Un servicio externo necesario está caído. Inténtalo más tarde.",
		"errors.internal":                  "Algo salió mal de nuestro lado. Inténtalo más tarde.",
	},
	"fr": {
		"errors.validation":                "La valeur de {0} n'est pas valide. Vérifiez-la et réessayez.",
		"errors.database":                  "Impossible d'enregistrer vos modifications. Veuillez réessayer.",
		"errors.database.critical":         "Nos systèmes de stockage rencontrent des difficultés. Réessayez plus tard.",
		"errors.auth":                      "Vous devez vous connecter pour continuer.",
		"errors.business_logic":            "Cette action n'est pas autorisée : {0}.",
		"errors.external_service":          "Le service {0} est actuellement indisponible. Réessayez plus tard.",
		"errors.external_service.critical": "Un service externe requis est hors ligne. Réessayez plus tard.",
		"errors.internal":                  "Une erreur est survenue de notre côté. Réessayez plus tard.",
	},
}

// paramOrder maps each template's positional parameters to the named
// context keys CategoryMessage reads. A missing key renders as "".
var paramOrder = map[string][]string{
	"errors.validation":       {"field"},
	"errors.business_logic":   {"rule"},
	"errors.external_service": {"service"},
}

// NewCatalog builds a catalog for the requested locale. Unsupported
// locales silently fall back to DefaultLocale.
func NewCatalog(localeTag string) (*Catalog, error) {
	uni := ut.New(en.New(), en.New(), es.New(), fr.New())

	for code, msgs := range entries {
		tr, found := uni.GetTranslator(code)
		if !found {
			return nil, fmt.Errorf("locale %q not registered", code)
		}
		for key, text := range msgs {
			if err := tr.Add(key, text, true); err != nil {
				return nil, fmt.Errorf("add %s/%s: %w", code, key, err)
			}
		}
	}

	active := normalize(localeTag)
	trans, found := uni.GetTranslator(active)
	if !found {
		active = DefaultLocale
		trans, _ = uni.GetTranslator(DefaultLocale)
	}

	return &Catalog{uni: uni, trans: trans, locale: active}, nil
}

// normalize reduces tags like "es-MX" to the base language.
func normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return DefaultLocale
	}
	return tag
}

// CategoryMessage resolves the user-facing message for an error of the
// given category and severity, interpolating named values from ctx.
// It never fails: catalog misses degrade to the generic fallback.
func (c *Catalog) CategoryMessage(cat apperror.Category, sev apperror.Severity, ctx map[string]any) string {
	key := "errors." + strings.ToLower(string(cat))
	params := c.params(key, ctx)

	if msg, ok := lookup(c.trans, key, sev, params); ok {
		return msg
	}

	// unknown category or missing entry in the active locale: retry on
	// the default locale before giving up
	if c.locale != DefaultLocale {
		if def, found := c.uni.GetTranslator(DefaultLocale); found {
			if msg, ok := lookup(def, key, sev, params); ok {
				return msg
			}
		}
	}
	return fallbackMessage
}

// lookup tries the severity-specific variant before the base entry.
func lookup(tr ut.Translator, key string, sev apperror.Severity, params []string) (string, bool) {
	if sev >= apperror.SeverityCritical {
		if msg, err := tr.T(key+".critical", params...); err == nil {
			return msg, true
		}
	}
	if msg, err := tr.T(key, params...); err == nil {
		return msg, true
	}
	return "", false
}

func (c *Catalog) params(key string, ctx map[string]any) []string {
	names := paramOrder[key]
	if len(names) == 0 {
		return nil
	}
	params := make([]string, len(names))
	for i, name := range names {
		if v, ok := ctx[name]; ok && v != nil {
			params[i] = fmt.Sprint(v)
		}
	}
	return params
}

// SupportedLocales lists the locales the catalog can serve.
func (c *Catalog) SupportedLocales() []string {
	return []string{"en", "es", "fr"}
}

// Current returns the active locale selection.
func (c *Catalog) Current() Config {
	return Config{Locale: c.locale, Fallback: DefaultLocale}
}
