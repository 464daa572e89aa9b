package eldamo

import (
	"encoding/xml"
	"strings"
)

// Language is an Eldamo language code such as "q" (Quenya) or "s" (Sindarin).
// Codes are kept as found in the document; unknown codes are not an error.
type Language string

var languageNames = map[Language]string{
	"ad":   "Adûnaic",
	"an":   "Ancient Noldorin",
	"av":   "Avarin",
	"bel":  "Beleriandic",
	"dor":  "Doriathrin",
	"eas":  "Easterling",
	"edan": "Edanic",
	"en":   "Early Noldorin",
	"eon":  "Early Old Noldorin",
	"eq":   "Early Quenya",
	"er":   "Early Primitive Elvish",
	"g":    "Gnomish",
	"ilk":  "Ilkorin",
	"kh":   "Khuzdul",
	"mq":   "Middle Quenya",
	"n":    "Noldorin",
	"nan":  "Nandorin",
	"on":   "Old Noldorin",
	"os":   "Old Sindarin",
	"oss":  "Ossriandric",
	"p":    "Primitive Elvish",
	"q":    "Quenya",
	"s":    "Sindarin",
	"t":    "Telerin",
	"tal":  "Taliska",
	"wos":  "Woses",
}

// Name returns the English name of the language, or the raw code when it is not known.
func (l Language) Name() string {
	if n, ok := languageNames[l]; ok {
		return n
	}
	return string(l)
}

// Abbreviation is the conventional short form, e.g. "Q." or "S.".
func (l Language) Abbreviation() string {
	if l == "" {
		return "?"
	}
	return strings.ToUpper(string(l)) + "."
}

// Key identifies a word by language and spelling.
type Key struct {
	Language Language
	Verbum   string
}

func (k Key) String() string {
	return string(k.Language) + " " + k.Verbum
}

// RuleKey identifies a phonological rule declared by a word through a <rule> element.
type RuleKey struct {
	Language Language `xml:"l,attr"`
	Rule     string   `xml:"rule,attr"`
	From     string   `xml:"from,attr"`
}

func (k RuleKey) String() string {
	return string(k.Language) + " [" + k.From + " > " + k.Rule + "]"
}

// Tokens is a space separated attribute value such as speech="n adj".
type Tokens []string

// UnmarshalXMLAttr splits the attribute on white space.
func (t *Tokens) UnmarshalXMLAttr(attr xml.Attr) error {
	*t = strings.Fields(attr.Value)
	return nil
}

// Has reports whether v is one of the tokens.
func (t Tokens) Has(v string) bool {
	for _, s := range t {
		if s == v {
			return true
		}
	}
	return false
}

func (t Tokens) String() string { return strings.Join(t, " ") }
