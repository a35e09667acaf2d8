package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Fallback defaults when the model answer carries no usable field.
const (
	DefaultOwnerName = "Cliente"
	DefaultPhone     = ""
)

var (
	nameLineRe  = regexp.MustCompile(`(?i)nombre[:\s]*([^\n\r]+)`)
	phoneLineRe = regexp.MustCompile(`(?i)(?:tel[eé]fono|whatsapp|phone)[:\s]*([^\n\r]+)`)
	nameCleanRe = regexp.MustCompile(`[^a-zA-ZáéíóúÁÉÍÓÚñÑ\s]`)
	phoneKeepRe = regexp.MustCompile(`[^\d+\-\s]`)

	chargerYesRe = []*regexp.Regexp{
		regexp.MustCompile(`(?:cargador|charger|adaptador).{0,40}?(?:sí|si|yes|true|incluye|tiene|presente|visible)`),
		regexp.MustCompile(`(?:con cargador|incluye cargador|cargador incluido)`),
		regexp.MustCompile(`(?:cable|cord).{0,40}?(?:alimentación|power|conectado|visible)`),
		regexp.MustCompile(`(?:power).{0,40}?(?:supply|adapter|cable)`),
	}
	chargerNoRe = []*regexp.Regexp{
		regexp.MustCompile(`(?:sin cargador|no incluye|no tiene)`),
		regexp.MustCompile(`(?:cargador|charger).{0,40}?(?:no|false|falta)`),
		regexp.MustCompile(`(?:no|false).{0,40}?(?:cargador|charger)`),
	}
	chargerHints = []string{"cable", "adaptador", "transformador", "charger", "usb", "alimentación"}
)

// ParseImageInfo interprets a model answer. The model is asked for JSON
// but sometimes returns prose; this parser tries strict JSON first, then
// salvages name/phone/charger hints from the text, and finally falls
// back to defaults ("Cliente", "", false). It never fails.
func ParseImageInfo(text string) ImageInfo {
	if info, ok := parseJSONAnswer(text); ok {
		return info
	}
	return parseTextAnswer(text)
}

type rawImageInfo struct {
	Nombre        string `json:"nombre"`
	Telefono      string `json:"telefono"`
	TieneCargador any    `json:"tiene_cargador"`
}

func parseJSONAnswer(text string) (ImageInfo, bool) {
	// models wrap JSON in markdown fences or prose; cut to the outermost braces
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ImageInfo{}, false
	}

	var raw rawImageInfo
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return ImageInfo{}, false
	}

	info := ImageInfo{
		OwnerName:  strings.TrimSpace(raw.Nombre),
		Phone:      strings.TrimSpace(raw.Telefono),
		HasCharger: coerceBool(raw.TieneCargador),
	}
	if info.OwnerName == "" {
		info.OwnerName = DefaultOwnerName
	}
	return info, true
}

func parseTextAnswer(text string) ImageInfo {
	lower := strings.ToLower(text)
	info := ImageInfo{OwnerName: DefaultOwnerName, Phone: DefaultPhone}

	if match := nameLineRe.FindStringSubmatch(lower); match != nil {
		name := strings.TrimSpace(nameCleanRe.ReplaceAllString(match[1], ""))
		if name != "" {
			info.OwnerName = name
		}
	}
	if match := phoneLineRe.FindStringSubmatch(lower); match != nil {
		info.Phone = strings.TrimSpace(phoneKeepRe.ReplaceAllString(match[1], ""))
	}
	info.HasCharger = detectCharger(lower)
	return info
}

func detectCharger(lower string) bool {
	for _, re := range chargerNoRe {
		if re.MatchString(lower) {
			return false
		}
	}
	for _, re := range chargerYesRe {
		if re.MatchString(lower) {
			return true
		}
	}
	// no explicit verdict: loose hardware hints tip the answer to yes
	for _, hint := range chargerHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "si", "sí", "yes":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}
