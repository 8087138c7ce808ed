package schema

import (
	"github.com/danjacka/mbrainz-importer/internal/catalog"
	"github.com/danjacka/mbrainz-importer/internal/entity"
)

type enumEntry struct {
	value string // value as it appears in source records
	ident entity.Ident
}

type enumTable struct {
	attr    string
	entries []enumEntry
}

var enumTables = []enumTable{
	{
		attr: "artist/type",
		entries: []enumEntry{
			{"Person", "artist.type/person"},
			{"Group", "artist.type/group"},
			{"Orchestra", "artist.type/orchestra"},
			{"Choir", "artist.type/choir"},
			{"Character", "artist.type/character"},
			{"Other", "artist.type/other"},
		},
	},
	{
		attr: "artist/gender",
		entries: []enumEntry{
			{"Male", "artist.gender/male"},
			{"Female", "artist.gender/female"},
			{"Non-binary", "artist.gender/nonBinary"},
			{"Other", "artist.gender/other"},
		},
	},
	{
		attr: "label/type",
		entries: []enumEntry{
			{"Original Production", "label.type/originalProduction"},
			{"Bootleg Production", "label.type/bootlegProduction"},
			{"Reissue Production", "label.type/reissueProduction"},
			{"Distributor", "label.type/distributor"},
			{"Holding", "label.type/holding"},
			{"Production", "label.type/production"},
			{"Publisher", "label.type/publisher"},
			{"Manufacturer", "label.type/manufacturer"},
			{"Imprint", "label.type/imprint"},
		},
	},
	{
		attr: "release/status",
		entries: []enumEntry{
			{"Official", "release.status/official"},
			{"Promotion", "release.status/promotion"},
			{"Bootleg", "release.status/bootleg"},
			{"Pseudo-Release", "release.status/pseudoRelease"},
			{"Withdrawn", "release.status/withdrawn"},
			{"Cancelled", "release.status/cancelled"},
		},
	},
	{
		attr: "medium/format",
		entries: []enumEntry{
			{"CD", "medium.format/cd"},
			{"CD-R", "medium.format/cdr"},
			{"Vinyl", "medium.format/vinyl"},
			{`7" Vinyl`, "medium.format/vinyl7"},
			{`10" Vinyl`, "medium.format/vinyl10"},
			{`12" Vinyl`, "medium.format/vinyl12"},
			{"Digital Media", "medium.format/digitalMedia"},
			{"Cassette", "medium.format/cassette"},
			{"DVD", "medium.format/dvd"},
			{"DVD-Audio", "medium.format/dvdAudio"},
			{"DVD-Video", "medium.format/dvdVideo"},
			{"SACD", "medium.format/sacd"},
			{"LaserDisc", "medium.format/laserDisc"},
			{"VHS", "medium.format/vhs"},
			{"Other", "medium.format/other"},
		},
	},
}

// Enums returns the enum resolution tables.
func Enums() []catalog.Table {
	tables := make([]catalog.Table, 0, len(enumTables))
	for _, table := range enumTables {
		values := make(map[string]entity.Ident, len(table.entries))
		for _, e := range table.entries {
			values[e.value] = e.ident
		}
		tables = append(tables, catalog.Table{Attr: table.attr, Values: values})
	}
	return tables
}

// EnumFragments produces the seed fragments for every enum value, in
// declaration order.
func EnumFragments() []entity.Fragment {
	var fragments []entity.Fragment
	for _, table := range enumTables {
		for _, e := range table.entries {
			fragments = append(fragments, entity.Fragment{entity.IdentAttr: e.ident})
		}
	}
	return fragments
}
