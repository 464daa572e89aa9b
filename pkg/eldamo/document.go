package eldamo

import "encoding/xml"

// WordData is the root of an Eldamo document.
type WordData struct {
	linked

	XMLName xml.Name `xml:"word-data"`
	Version string   `xml:"version,attr"`

	// Words holds the top-level words only; earlier variants are nested in their
	// successors. Index.Words lists every word.
	Words   []*Word             `xml:"word"`
	Sources []Source            `xml:"source"`
	Cats    *SemanticCategories `xml:"cats"`
}

func (d *WordData) ChildNodes() []Node {
	return appendNodes(nil, d.Words)
}

// Source describes a publication referenced by Ref.Source prefixes.
type Source struct {
	Name   string `xml:"name,attr"`
	Prefix string `xml:"prefix,attr"`
	Type   string `xml:"type,attr"`
	Cite   string `xml:"cite"`
	Notes  HTML   `xml:"notes"`
}

// SemanticCategories groups the categories a word's Category attribute refers to.
type SemanticCategories struct {
	Groups []CategoryGroup `xml:"cat-group"`
}

type CategoryGroup struct {
	ID         string     `xml:"id,attr"`
	Label      string     `xml:"label,attr"`
	Number     string     `xml:"num,attr"`
	Categories []Category `xml:"cat"`
}

type Category struct {
	ID     string `xml:"id,attr"`
	Label  string `xml:"label,attr"`
	Number string `xml:"num,attr"`
}

// Category looks up a semantic category by id.
func (c *SemanticCategories) Category(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	for _, g := range c.Groups {
		for _, cat := range g.Categories {
			if cat.ID == id {
				return cat, true
			}
		}
	}
	return Category{}, false
}

// SourceByPrefix finds the publication a reference source id starts with.
func (d *WordData) SourceByPrefix(prefix string) (Source, bool) {
	for _, s := range d.Sources {
		if s.Prefix == prefix {
			return s, true
		}
	}
	return Source{}, false
}
