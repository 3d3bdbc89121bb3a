/*
Package quiteok is a library for decoding QOI images and maintaining a
catalog of the decoded results.
*/
package quiteok

import "log"

type Library struct {
	db     *Catalog
	logger *log.Logger
}

func New(file string, logger *log.Logger) (*Library, error) {
	db, err := NewCatalog(file)
	if err != nil {
		return nil, err
	}
	return &Library{
		db:     db,
		logger: logger,
	}, nil
}

func (l *Library) Close() error {
	return l.db.Close()
}
