package quiteok

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/quiteok/qoi"
)

func (l *Library) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() {
				return nil
			}

			if strings.ToLower(filepath.Ext(file)) != ".qoi" {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// imageWorker decodes each file it receives from in and stores the result
// in the catalog. Every file gets its own decode session, so any number of
// workers can run at once.
func (l *Library) imageWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			select {
			case <-ctx.Done():
				return
			default:
			}

			b, err := os.ReadFile(file)
			if err != nil {
				errc <- err
				return
			}

			crc := fmt.Sprintf("%.*X", crc32.Size<<1, crc32.ChecksumIEEE(b))

			// Unchanged since the last scan
			if entry, _, err := l.db.FindByPath(file); err != nil {
				errc <- err
				return
			} else if entry != nil && entry.CRC == crc {
				continue
			}

			var header qoi.Header
			if err := header.UnmarshalBinary(b); err != nil {
				l.logger.Printf("Skipping \"%s\": %v\n", file, err)
				continue
			}

			m, err := qoi.Decode(bytes.NewReader(b))
			if err != nil {
				l.logger.Printf("Skipping \"%s\": %v\n", file, err)
				continue
			}

			if err := l.db.Add(file, crc, header, m.(*image.NRGBA).Pix); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks the directory tree rooted at path and catalogs every QOI
// image found under it.
func (l *Library) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := l.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < 10; i++ {
		errc, err := l.imageWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
