package service

import "strings"

// Friendly names accepted in place of upstream service codes.
var serviceAliases = map[string]string{
	"whatsapp":  "wa",
	"telegram":  "tg",
	"vkontakte": "vk",
	"ok":        "ok",
	"wechat":    "wb",
	"google":    "go",
	"facebook":  "fb",
	"twitter":   "tw",
	"other":     "ot",
}

// Country names accepted in place of the numeric upstream country ids.
var countryAliases = map[string]string{
	"russia":     "0",
	"ukraine":    "1",
	"kazakhstan": "2",
	"china":      "3",
	"indonesia":  "6",
	"brazil":     "73",
	"usa":        "187",
}

func ResolveService(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, ok := serviceAliases[s]; ok {
		return code
	}
	return s
}

func ResolveCountry(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if code, ok := countryAliases[c]; ok {
		return code
	}
	return c
}

func validCode(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
