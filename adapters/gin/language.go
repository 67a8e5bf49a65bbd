package coursegin

import (
	"strings"

	"github.com/gin-gonic/gin"

	kitlang "github.com/open-rails/coursekit/lang"
)

// LanguageConfig controls how the request language for countdown labels is
// resolved: `?lang` query param > `lang` cookie > Accept-Language > default.
type LanguageConfig struct {
	Supported  []string
	Default    string
	QueryParam string
	CookieName string
}

func (c *LanguageConfig) defaulted() LanguageConfig {
	if c == nil {
		return LanguageConfig{Default: "en", QueryParam: "lang", CookieName: "lang"}
	}
	out := *c
	if strings.TrimSpace(out.Default) == "" {
		out.Default = "en"
	}
	if strings.TrimSpace(out.QueryParam) == "" {
		out.QueryParam = "lang"
	}
	if strings.TrimSpace(out.CookieName) == "" {
		out.CookieName = "lang"
	}
	return out
}

func normalizeLangCode(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'z' || s[1] < 'a' || s[1] > 'z' {
		return ""
	}
	return s
}

func (cfg LanguageConfig) allowed(lang string) bool {
	if lang == "" {
		return false
	}
	if len(cfg.Supported) == 0 {
		return true
	}
	for _, s := range cfg.Supported {
		if normalizeLangCode(s) == lang {
			return true
		}
	}
	return false
}

func pickFromAcceptLanguage(header string, cfg LanguageConfig) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if i := strings.IndexByte(part, ';'); i >= 0 {
			part = part[:i]
		}
		if lang := normalizeLangCode(part); cfg.allowed(lang) {
			return lang
		}
	}
	return ""
}

func resolveRequestLanguage(c *gin.Context, cfg LanguageConfig) string {
	if qp := normalizeLangCode(c.Query(cfg.QueryParam)); cfg.allowed(qp) {
		return qp
	}
	if cv, err := c.Cookie(cfg.CookieName); err == nil {
		if ck := normalizeLangCode(cv); cfg.allowed(ck) {
			return ck
		}
	}
	if al := pickFromAcceptLanguage(c.GetHeader("Accept-Language"), cfg); al != "" {
		return al
	}
	if def := normalizeLangCode(cfg.Default); cfg.allowed(def) {
		return def
	}
	return "en"
}

// LanguageMiddleware infers request language and attaches it to the request
// context for countdown label localization.
func LanguageMiddleware(cfg *LanguageConfig) gin.HandlerFunc {
	conf := cfg.defaulted()
	return func(g *gin.Context) {
		lang := resolveRequestLanguage(g, conf)
		g.Set("coursekit.language", lang)
		g.Request = g.Request.WithContext(kitlang.WithLanguage(g.Request.Context(), lang))
		g.Next()
	}
}
