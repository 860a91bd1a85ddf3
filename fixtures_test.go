package glottoguess

// testEntries returns a small catalog used across the test files. Coordinates
// are real enough for distance assertions: the query point (2.5, 48.4) sits
// ~51km from the French entry, ~390km from English, ~640km from Basque.
func testEntries() []Entry {
	return []Entry{
		{ID: "indo1319", Name: "Indo-European", Level: LevelFamily},
		{ID: "roma1334", Name: "Romance", Level: LevelFamily, FamilyID: "indo1319", ParentID: "indo1319"},
		{
			ID: "stan1290", Name: "French", Level: LevelLanguage,
			FamilyID: "indo1319", ParentID: "roma1334",
			AltNames:    []string{"français"},
			ISOCode:     "fra",
			HasLocation: true, Latitude: 48.85, Longitude: 2.35,
		},
		{
			ID: "pari1240", Name: "Parisian French", Level: LevelDialect,
			FamilyID: "indo1319", ParentID: "stan1290",
			HasLocation: true, Latitude: 48.86, Longitude: 2.34,
		},
		{
			ID: "stan1293", Name: "English", Level: LevelLanguage,
			ISOCode:     "eng",
			HasLocation: true, Latitude: 51.5, Longitude: -0.1,
		},
		{
			ID: "basq1248", Name: "Basque", Level: LevelLanguage,
			ISOCode:     "eus",
			HasLocation: true, Latitude: 43.28, Longitude: -1.32,
		},
		{
			ID: "japa1256", Name: "Japanese", Level: LevelLanguage,
			ISOCode:     "jpn",
			HasLocation: true, Latitude: 35.7, Longitude: 139.7,
		},
	}
}
