package schema

import (
	"github.com/danjacka/mbrainz-importer/internal/catalog"
	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// Super-enum entities carry a generated ident plus a unique display name, so
// they resolve both ways: source records reference them by code through the
// catalog, interactive queries by name through the unique attribute.
type superEnumEntry struct {
	code string // code as it appears in source records
	name string
}

type superEnumTable struct {
	attrs       []string // record attributes resolved against this table
	identPrefix string
	nameAttr    string
	entries     []superEnumEntry
}

var superEnumTables = []superEnumTable{
	{
		attrs:       []string{"artist/country", "label/country", "release/country"},
		identPrefix: "country/",
		nameAttr:    "country/name",
		entries: []superEnumEntry{
			{"AR", "Argentina"},
			{"AT", "Austria"},
			{"AU", "Australia"},
			{"BE", "Belgium"},
			{"BR", "Brazil"},
			{"CA", "Canada"},
			{"CH", "Switzerland"},
			{"CN", "China"},
			{"CZ", "Czechia"},
			{"DE", "Germany"},
			{"DK", "Denmark"},
			{"EE", "Estonia"},
			{"ES", "Spain"},
			{"FI", "Finland"},
			{"FR", "France"},
			{"GB", "United Kingdom"},
			{"GR", "Greece"},
			{"HK", "Hong Kong"},
			{"HU", "Hungary"},
			{"IE", "Ireland"},
			{"IL", "Israel"},
			{"IN", "India"},
			{"IS", "Iceland"},
			{"IT", "Italy"},
			{"JP", "Japan"},
			{"KR", "South Korea"},
			{"LT", "Lithuania"},
			{"LV", "Latvia"},
			{"MX", "Mexico"},
			{"NL", "Netherlands"},
			{"NO", "Norway"},
			{"NZ", "New Zealand"},
			{"PL", "Poland"},
			{"PT", "Portugal"},
			{"RU", "Russia"},
			{"SE", "Sweden"},
			{"SG", "Singapore"},
			{"TR", "Turkey"},
			{"TW", "Taiwan"},
			{"UA", "Ukraine"},
			{"US", "United States"},
			{"ZA", "South Africa"},
			{"XE", "Europe"},
			{"XW", "Worldwide"},
		},
	},
	{
		attrs:       []string{"release/language"},
		identPrefix: "language/",
		nameAttr:    "language/name",
		entries: []superEnumEntry{
			{"ara", "Arabic"},
			{"cat", "Catalan"},
			{"ces", "Czech"},
			{"dan", "Danish"},
			{"deu", "German"},
			{"ell", "Greek"},
			{"eng", "English"},
			{"est", "Estonian"},
			{"fin", "Finnish"},
			{"fra", "French"},
			{"heb", "Hebrew"},
			{"hin", "Hindi"},
			{"hun", "Hungarian"},
			{"ind", "Indonesian"},
			{"isl", "Icelandic"},
			{"ita", "Italian"},
			{"jpn", "Japanese"},
			{"kor", "Korean"},
			{"lav", "Latvian"},
			{"lit", "Lithuanian"},
			{"nld", "Dutch"},
			{"nor", "Norwegian"},
			{"pol", "Polish"},
			{"por", "Portuguese"},
			{"rus", "Russian"},
			{"spa", "Spanish"},
			{"swe", "Swedish"},
			{"tha", "Thai"},
			{"tur", "Turkish"},
			{"ukr", "Ukrainian"},
			{"vie", "Vietnamese"},
			{"zho", "Chinese"},
			{"mul", "Multiple languages"},
			{"zxx", "No linguistic content"},
		},
	},
	{
		attrs:       []string{"release/script"},
		identPrefix: "script/",
		nameAttr:    "script/name",
		entries: []superEnumEntry{
			{"Arab", "Arabic"},
			{"Cyrl", "Cyrillic"},
			{"Deva", "Devanagari"},
			{"Ethi", "Ethiopic"},
			{"Grek", "Greek"},
			{"Hani", "Han"},
			{"Hans", "Han (Simplified)"},
			{"Hant", "Han (Traditional)"},
			{"Hebr", "Hebrew"},
			{"Hira", "Hiragana"},
			{"Jpan", "Japanese"},
			{"Kana", "Katakana"},
			{"Kore", "Korean"},
			{"Latn", "Latin"},
			{"Thai", "Thai"},
		},
	},
}

// SuperEnums returns the super-enum resolution tables, one per claimed
// attribute.
func SuperEnums() []catalog.Table {
	var tables []catalog.Table
	for _, table := range superEnumTables {
		values := make(map[string]entity.Ident, len(table.entries))
		for _, e := range table.entries {
			values[e.code] = entity.Ident(table.identPrefix + e.code)
		}
		for _, attr := range table.attrs {
			tables = append(tables, catalog.Table{Attr: attr, Values: values})
		}
	}
	return tables
}

// SuperEnumFragments produces the seed fragments for every super-enum
// entity, in declaration order.
func SuperEnumFragments() []entity.Fragment {
	var fragments []entity.Fragment
	for _, table := range superEnumTables {
		for _, e := range table.entries {
			fragments = append(fragments, entity.Fragment{
				entity.IdentAttr: entity.Ident(table.identPrefix + e.code),
				table.nameAttr:   e.name,
			})
		}
	}
	return fragments
}
