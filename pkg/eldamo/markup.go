package eldamo

import (
	"strings"

	"golang.org/x/net/html"
)

// HTML is the raw inner markup of a notes element. Links to other words are written as
// <a l="q" v="alda"/> and links to references as <a ref="PE17/056.2410"/>, either form
// optionally wrapping link text.
type HTML struct {
	Raw string `xml:",innerxml"`
}

// Converter renders the links found in notes. content is plain text: the decoded link
// text, or the target spelling or source id for a link without text.
type Converter interface {
	WordLink(key Key, content string) string
	RefLink(source string, content string) string
}

type anchor struct {
	raw    string
	word   bool
	key    Key
	source string
}

func (a anchor) render(c Converter, content string, closed bool) string {
	if !closed {
		if a.word {
			content = a.key.Verbum
		} else {
			content = a.source
		}
	}
	if a.word {
		return c.WordLink(a.key, content)
	}
	return c.RefLink(a.source, content)
}

func anchorOf(tok html.Token, raw string) (anchor, bool) {
	if tok.Data != "a" {
		return anchor{}, false
	}
	var l, v, ref string
	var hasL, hasV, hasRef bool
	for _, at := range tok.Attr {
		switch at.Key {
		case "l":
			l, hasL = at.Val, true
		case "v":
			v, hasV = at.Val, true
		case "ref":
			ref, hasRef = at.Val, true
		}
	}
	switch {
	case hasL && hasV:
		return anchor{raw: raw, word: true, key: Key{Language: Language(l), Verbum: v}}, true
	case hasRef:
		return anchor{raw: raw, source: ref}, true
	}
	return anchor{}, false
}

// Convert rewrites word and reference links through c and leaves all other markup as
// written. A link whose text contains further markup is left untouched.
func (h HTML) Convert(c Converter) string {
	z := html.NewTokenizer(strings.NewReader(h.Raw))
	var out, text strings.Builder
	var open *anchor

	abandon := func(raw string) {
		out.WriteString(open.raw)
		out.WriteString(text.String())
		out.WriteString(raw)
		open = nil
		text.Reset()
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if open != nil {
				abandon("")
			}
			return out.String()
		}
		raw := string(z.Raw())

		switch tt {
		case html.SelfClosingTagToken:
			if open != nil {
				abandon(raw)
				continue
			}
			if a, ok := anchorOf(z.Token(), raw); ok {
				out.WriteString(a.render(c, "", false))
				continue
			}
			out.WriteString(raw)
		case html.StartTagToken:
			if open != nil {
				abandon(raw)
				continue
			}
			if a, ok := anchorOf(z.Token(), raw); ok {
				open = &a
				continue
			}
			out.WriteString(raw)
		case html.EndTagToken:
			if open != nil {
				name, _ := z.TagName()
				if string(name) == "a" {
					out.WriteString(open.render(c, html.UnescapeString(text.String()), true))
					open = nil
					text.Reset()
					continue
				}
				abandon(raw)
				continue
			}
			out.WriteString(raw)
		case html.TextToken:
			if open != nil {
				text.WriteString(raw)
				continue
			}
			out.WriteString(raw)
		default:
			if open != nil {
				abandon(raw)
				continue
			}
			out.WriteString(raw)
		}
	}
}

// Text returns the notes with every tag removed and entities decoded.
func (h HTML) Text() string {
	z := html.NewTokenizer(strings.NewReader(h.Raw))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
