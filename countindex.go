package easysfs

import (
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

// CountIndex is the persisted form of a run's count table: a SQLite file
// holding every variant, every (variant, population) allele-count pair, and
// run metadata. It is written once per run directory and can be reopened
// for inspection or reuse without re-deriving counts from genotypes.
type CountIndex struct {
	DB       *sqlx.DB
	Metadata *CountIndexMetadata
}

func (c *CountIndex) Close() error {
	return c.DB.Close()
}

// CountIndexMetadata conforms to the single row of the Metadata table.
type CountIndexMetadata struct {
	Tool        string `db:"tool"`
	Ploidy      int    `db:"ploidy"`
	Populations string `db:"populations"`
	CreatedAt   Time   `db:"created_at"`
}

// VariantRow conforms to the rows of the Variant table.
type VariantRow struct {
	Key        string `db:"key"`
	Chromosome string `db:"chromosome"`
	Position   string `db:"position"`
	Ref        string `db:"ref"`
	Alt        string `db:"alt"`
	Outgroup   string `db:"outgroup"`
}

// CountRow conforms to the rows of the AlleleCount table.
type CountRow struct {
	VariantKey string `db:"variant_key"`
	Population string `db:"population"`
	RefCount   int    `db:"ref_count"`
	AltCount   int    `db:"alt_count"`
}

const countIndexSchema = `
CREATE TABLE IF NOT EXISTS Metadata (
	tool TEXT,
	ploidy INTEGER,
	populations TEXT,
	created_at INTEGER
);
CREATE TABLE IF NOT EXISTS Variant (
	key TEXT PRIMARY KEY,
	chromosome TEXT,
	position TEXT,
	ref TEXT,
	alt TEXT,
	outgroup TEXT
);
CREATE TABLE IF NOT EXISTS AlleleCount (
	variant_key TEXT,
	population TEXT,
	ref_count INTEGER,
	alt_count INTEGER
);
CREATE INDEX IF NOT EXISTS AlleleCountPop ON AlleleCount (population);
`

// WriteCountIndex persists a count table and its provenance to a SQLite
// file at path.
func WriteCountIndex(path string, tbl *CountTable, pops *Populations, ploidy int) error {
	db, err := openCountDB(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer db.Close()

	if _, err := db.Exec(countIndexSchema); err != nil {
		return pfx.Err(err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}

	meta := CountIndexMetadata{
		Tool:        "easySFS",
		Ploidy:      ploidy,
		Populations: strings.Join(pops.Names, ","),
	}
	if _, err := tx.Exec(
		"INSERT INTO Metadata (tool, ploidy, populations, created_at) VALUES (?, ?, ?, ?)",
		meta.Tool, meta.Ploidy, meta.Populations, time.Now().Unix(),
	); err != nil {
		tx.Rollback()
		return pfx.Err(err)
	}

	variantStmt, err := tx.PrepareNamed(
		"INSERT INTO Variant (key, chromosome, position, ref, alt, outgroup) " +
			"VALUES (:key, :chromosome, :position, :ref, :alt, :outgroup)")
	if err != nil {
		tx.Rollback()
		return pfx.Err(err)
	}
	countStmt, err := tx.PrepareNamed(
		"INSERT INTO AlleleCount (variant_key, population, ref_count, alt_count) " +
			"VALUES (:variant_key, :population, :ref_count, :alt_count)")
	if err != nil {
		tx.Rollback()
		return pfx.Err(err)
	}

	for _, v := range tbl.Variants {
		if _, err := variantStmt.Exec(VariantRow{
			Key:        v.Key,
			Chromosome: v.Chromosome,
			Position:   v.Position,
			Ref:        v.Ref,
			Alt:        v.Alt,
			Outgroup:   v.Outgroup,
		}); err != nil {
			tx.Rollback()
			return pfx.Err(err)
		}

		for _, pop := range pops.Names {
			counts := v.Calls[pop]
			if _, err := countStmt.Exec(CountRow{
				VariantKey: v.Key,
				Population: pop,
				RefCount:   counts.Ref,
				AltCount:   counts.Alt,
			}); err != nil {
				tx.Rollback()
				return pfx.Err(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// OpenCountIndex opens an existing count index file.
func OpenCountIndex(path string) (*CountIndex, error) {
	db, err := openCountDB(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	idx := &CountIndex{
		DB:       db,
		Metadata: &CountIndexMetadata{},
	}

	// Older index files may predate the metadata table; ignore any error
	_ = idx.DB.Get(idx.Metadata, "SELECT * FROM Metadata LIMIT 1")

	return idx, nil
}

// PopulationCounts returns one population's allele counts in variant order.
func (c *CountIndex) PopulationCounts(pop string) ([]CountRow, error) {
	var rows []CountRow
	if err := c.DB.Select(&rows,
		"SELECT variant_key, population, ref_count, alt_count FROM AlleleCount WHERE population = ? ORDER BY rowid",
		pop,
	); err != nil {
		return nil, pfx.Err(err)
	}
	return rows, nil
}

// Variants returns every indexed variant in insertion order.
func (c *CountIndex) Variants() ([]VariantRow, error) {
	var rows []VariantRow
	if err := c.DB.Select(&rows, "SELECT * FROM Variant ORDER BY rowid"); err != nil {
		return nil, pfx.Err(err)
	}
	return rows, nil
}

// WhichSQLiteDriver reports which SQLite driver this build uses.
func WhichSQLiteDriver() string {
	return whichSQLiteDriver
}
