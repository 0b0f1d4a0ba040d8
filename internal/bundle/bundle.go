// Package bundle packs the sector files of a map directory into a single
// zstd-compressed tar stream and unpacks it again.
package bundle

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/cory-johannsen/scsmap/internal/mapio"
	"github.com/cory-johannsen/scsmap/internal/scsmap"
)

// Ext is the conventional bundle file extension.
const Ext = ".tar.zst"

// ParseLevel maps a configured level name ("fastest", "default", "better",
// "best") to a zstd encoder level.
func ParseLevel(name string) (zstd.EncoderLevel, error) {
	ok, level := zstd.EncoderLevelFromString(name)
	if !ok {
		return 0, fmt.Errorf("bundle: unknown compression level %q", name)
	}
	return level, nil
}

// Pack writes every sector file of dir to w.
//
// Precondition: dir must be a readable map directory.
// Postcondition: returns the number of files written.
func Pack(w io.Writer, dir string, level zstd.EncoderLevel) (int, error) {
	sectors, err := mapio.ListSectors(dir)
	if err != nil {
		return 0, fmt.Errorf("bundle: Pack: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return 0, fmt.Errorf("bundle: Pack: %w", err)
	}
	tw := tar.NewWriter(enc)

	n := 0
	for _, sf := range sectors {
		for _, path := range []string{sf.Base, sf.Aux} {
			if path == "" {
				continue
			}
			if err := addFile(tw, path); err != nil {
				enc.Close()
				return n, fmt.Errorf("bundle: Pack: %w", err)
			}
			n++
		}
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return n, fmt.Errorf("bundle: Pack: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("bundle: Pack: %w", err)
	}
	return n, nil
}

func addFile(tw *tar.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:     filepath.Base(path),
		Mode:     0644,
		Size:     int64(len(data)),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: %w", hdr.Name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("%s: %w", hdr.Name, err)
	}
	return nil
}

// Unpack extracts a bundle read from r into dir, creating dir if needed.
//
// Postcondition: returns an error, leaving earlier files in place, when an
// entry is not a regular sector file.
func Unpack(r io.Reader, dir string) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("bundle: Unpack: %w", err)
	}
	defer dec.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("bundle: Unpack: %w", err)
	}

	tr := tar.NewReader(bufio.NewReaderSize(dec, 256*1024))
	n := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("bundle: Unpack: %w", err)
		}
		if err := checkEntry(hdr); err != nil {
			return n, fmt.Errorf("bundle: Unpack: %w", err)
		}
		if err := extract(tr, filepath.Join(dir, hdr.Name)); err != nil {
			return n, fmt.Errorf("bundle: Unpack: %s: %w", hdr.Name, err)
		}
		n++
	}
}

func checkEntry(hdr *tar.Header) error {
	if hdr.Typeflag != tar.TypeReg {
		return fmt.Errorf("entry %q is not a regular file", hdr.Name)
	}
	if filepath.Base(hdr.Name) != hdr.Name {
		return fmt.Errorf("entry %q is not a bare file name", hdr.Name)
	}
	ext := filepath.Ext(hdr.Name)
	if ext != mapio.BaseExt && ext != mapio.AuxExt {
		return fmt.Errorf("entry %q is not a sector file", hdr.Name)
	}
	if _, err := scsmap.ParseSectorCoord(strings.TrimSuffix(hdr.Name, ext)); err != nil {
		return fmt.Errorf("entry %q: %w", hdr.Name, err)
	}
	return nil
}

func extract(r io.Reader, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// PackFile packs dir into the bundle file at path.
func PackFile(path, dir string, level zstd.EncoderLevel) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("bundle: PackFile: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("bundle: PackFile: %w", err)
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	n, err := Pack(bw, dir, level)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return n, fmt.Errorf("bundle: PackFile: %w", err)
	}
	return n, f.Close()
}

// UnpackFile extracts the bundle file at path into dir.
func UnpackFile(path, dir string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("bundle: UnpackFile: %w", err)
	}
	defer f.Close()
	return Unpack(f, dir)
}
