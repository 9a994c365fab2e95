package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ulikunitz/xz"
)

var archiveSuffixes = []string{".zip", ".tar.xz", ".tar.gz"}

func isArchive(asset string) bool {
	return slices.ContainsFunc(archiveSuffixes, func(s string) bool { return strings.HasSuffix(asset, s) })
}

// unpack extracts the regular files named in members (matched by base name) into destDir.
// Every member must be present.
func unpack(archivePath, destDir, asset string, members []string) error {
	want := make(map[string]bool, len(members))
	for _, name := range members {
		want[name] = false
	}

	var err error

	switch {
	case strings.HasSuffix(asset, ".zip"):
		err = unpackZip(archivePath, destDir, want)
	case strings.HasSuffix(asset, ".tar.xz"):
		err = withFile(archivePath, func(f *os.File) error {
			r, err := xz.NewReader(f)
			if err != nil {
				return fmt.Errorf("create xz reader: %w", err)
			}

			return unpackTar(r, destDir, want)
		})
	case strings.HasSuffix(asset, ".tar.gz"):
		err = withFile(archivePath, func(f *os.File) error {
			r, err := gzip.NewReader(f)
			if err != nil {
				return fmt.Errorf("create gzip reader: %w", err)
			}
			defer r.Close()

			return unpackTar(r, destDir, want)
		})
	default:
		return fmt.Errorf("unsupported archive format: %s", asset)
	}

	if err != nil {
		return err
	}

	for name, found := range want {
		if !found {
			return fmt.Errorf("%s not found in %s", name, asset)
		}
	}

	return nil
}

func withFile(p string, fn func(*os.File) error) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return fn(f)
}

func unpackZip(archivePath, destDir string, want map[string]bool) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		name := filepath.Base(file.Name)
		if !file.Mode().IsRegular() || !wanted(want, name) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s in zip: %w", name, err)
		}

		err = writeExecutable(filepath.Join(destDir, name), rc)
		rc.Close()

		if err != nil {
			return err
		}

		want[name] = true
	}

	return nil
}

func unpackTar(r io.Reader, destDir string, want map[string]bool) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name := filepath.Base(header.Name)
		if header.Typeflag != tar.TypeReg || !wanted(want, name) {
			continue
		}

		if err := writeExecutable(filepath.Join(destDir, name), tr); err != nil {
			return err
		}

		want[name] = true
	}
}

func wanted(want map[string]bool, name string) bool {
	found, ok := want[name]

	return ok && !found
}

func writeExecutable(dest string, r io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	_, err = io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("extract %s: %w", dest, err)
	}

	return nil
}
