package glottoguess

import (
	"strings"
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type CatalogSuite struct {
	catalog *Catalog
}

var _ = Suite(&CatalogSuite{})

func (s *CatalogSuite) SetUpSuite(c *C) {
	s.catalog = NewCatalogFromEntries(testEntries())
}

const languoidCSVSample = `id,family_id,parent_id,name,bookkeeping,level,latitude,longitude,iso639P3code,description,markup_description,child_family_count,child_language_count,child_dialect_count,country_ids
indo1319,,,Indo-European,False,family,,,,,,,,,
roma1334,indo1319,indo1319,Romance,False,family,,,,,,,,,
stan1290,indo1319,roma1334,French,False,language,48.85,2.35,fra,,,,,,BE CA CH FR
pari1240,indo1319,stan1290,"Parisian, French",False,dialect,48.86,2.34,,,,,,,FR
`

func (s *CatalogSuite) TestParseLanguoidCSV(c *C) {
	entries, err := parseLanguoidCSV(strings.NewReader(languoidCSVSample))
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 4)

	french := entries[2]
	c.Assert(french.ID, Equals, "stan1290")
	c.Assert(french.Name, Equals, "French")
	c.Assert(french.Level, Equals, LevelLanguage)
	c.Assert(french.ParentID, Equals, "roma1334")
	c.Assert(french.FamilyID, Equals, "indo1319")
	c.Assert(french.ISOCode, Equals, "fra")
	c.Assert(french.HasLocation, Equals, true)
	c.Assert(french.Latitude, Equals, 48.85)
	c.Assert(french.Longitude, Equals, 2.35)
	c.Assert(french.CountryIDs, DeepEquals, []string{"BE", "CA", "CH", "FR"})

	// Families carry no coordinates in the export.
	c.Assert(entries[0].HasLocation, Equals, false)
	c.Assert(entries[0].Level, Equals, LevelFamily)

	// Quoted names with commas survive the CSV parse.
	c.Assert(entries[3].Name, Equals, "Parisian, French")
}

func (s *CatalogSuite) TestParseLanguoidCSVMissingColumn(c *C) {
	_, err := parseLanguoidCSV(strings.NewReader("id,name\nabcd1234,Foo\n"))
	c.Assert(err, Not(IsNil))
	c.Assert(err, ErrorMatches, `.*missing required column.*`)
}

func (s *CatalogSuite) TestGet(c *C) {
	e, ok := s.catalog.Get("stan1290")
	c.Assert(ok, Equals, true)
	c.Assert(e.Name, Equals, "French")

	_, ok = s.catalog.Get("none9999")
	c.Assert(ok, Equals, false)
}

func (s *CatalogSuite) TestAncestors(c *C) {
	chain, err := s.catalog.Ancestors("pari1240")
	c.Assert(err, IsNil)
	c.Assert(chain, DeepEquals, []string{"indo1319", "roma1334", "stan1290", "pari1240"})

	// A root family is its own chain.
	chain, err = s.catalog.Ancestors("indo1319")
	c.Assert(err, IsNil)
	c.Assert(chain, DeepEquals, []string{"indo1319"})

	_, err = s.catalog.Ancestors("none9999")
	c.Assert(err, FitsTypeOf, &UnknownIdentifierError{})
}

func (s *CatalogSuite) TestChildrenAndParents(c *C) {
	children := s.catalog.Children([]string{"stan1290"})
	c.Assert(children, DeepEquals, []string{"pari1240"})

	parents := s.catalog.Parents([]string{"stan1290", "pari1240"})
	c.Assert(parents, DeepEquals, []string{"roma1334", "stan1290"})

	c.Assert(s.catalog.Children([]string{"pari1240"}), HasLen, 0)
}

func (s *CatalogSuite) TestParseLevel(c *C) {
	for _, tok := range []string{"language", "dialect", "family", "all"} {
		level, err := ParseLevel(tok)
		c.Assert(err, IsNil)
		c.Assert(string(level), Equals, tok)
	}

	_, err := ParseLevel("macroarea")
	c.Assert(err, FitsTypeOf, &InvalidLevelError{})
}

func (s *CatalogSuite) TestEntriesAreInCatalogOrder(c *C) {
	entries := s.catalog.Entries()
	c.Assert(len(entries), Equals, s.catalog.Len())
	c.Assert(entries[0].ID, Equals, "indo1319")
}
