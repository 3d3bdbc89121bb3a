package quiteok

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/quiteok/qoi"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// An Entry is one cataloged QOI image.
type Entry struct {
	Path   string
	CRC    string
	Header qoi.Header
}

// Catalog is a database of scanned QOI images. Alongside the header fields
// and file checksum it stores each image's decoded pixels, zstd-compressed,
// so they can be exported again without re-decoding the original file.
type Catalog struct {
	db   *sql.DB
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, crc TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, channels INTEGER NOT NULL, colorspace INTEGER NOT NULL, pixels BLOB NOT NULL)"); err != nil {
		return nil, err
	}

	zenc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, err
	}

	zdec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		db:   db,
		zenc: zenc,
		zdec: zdec,
	}, nil
}

func (c *Catalog) Close() error {
	c.zdec.Close()
	if err := c.zenc.Close(); err != nil {
		return err
	}
	return c.db.Close()
}

// Add stores or replaces the record for path.
func (c *Catalog) Add(path, crc string, header qoi.Header, pixels []byte) error {
	blob := c.zenc.EncodeAll(pixels, nil)
	if _, err := c.db.Exec("INSERT OR REPLACE INTO image (path, crc, width, height, channels, colorspace, pixels) VALUES (?, ?, ?, ?, ?, ?, ?)",
		path, crc, header.Width, header.Height, header.Channels, header.Colorspace, blob); err != nil {
		return err
	}
	return nil
}

// FindByPath returns the entry and decoded pixels for path, or nil if the
// path has not been cataloged.
func (c *Catalog) FindByPath(path string) (*Entry, []byte, error) {
	return c.find("SELECT path, crc, width, height, channels, colorspace, pixels FROM image WHERE path = ?", path)
}

// FindByCRC returns the first entry and decoded pixels matching the given
// file checksum, or nil if no file with that checksum has been cataloged.
func (c *Catalog) FindByCRC(crc string) (*Entry, []byte, error) {
	return c.find("SELECT path, crc, width, height, channels, colorspace, pixels FROM image WHERE crc = ?", crc)
}

func (c *Catalog) find(query string, arg interface{}) (*Entry, []byte, error) {
	var e Entry
	var blob []byte
	switch err := c.db.QueryRow(query, arg).Scan(&e.Path, &e.CRC, &e.Header.Width, &e.Header.Height, &e.Header.Channels, &e.Header.Colorspace, &blob); err {
	case sql.ErrNoRows:
		return nil, nil, nil
	case nil:
		pixels, err := c.zdec.DecodeAll(blob, nil)
		if err != nil {
			return nil, nil, err
		}
		return &e, pixels, nil
	default:
		return nil, nil, err
	}
}

// Length returns the number of cataloged images.
func (c *Catalog) Length() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM image").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
