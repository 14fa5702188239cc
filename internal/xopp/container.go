package xopp

import (
	"compress/gzip"
	"io"

	"github.com/spf13/afero"
)

type containerReader struct {
	f  afero.File
	gz *gzip.Reader
}

func (r *containerReader) Read(p []byte) (int, error) {
	n, err := r.gz.Read(p)
	if err != nil && err != io.EOF {
		return n, ioErr("decompress", r.f.Name(), err)
	}
	return n, err
}

func (r *containerReader) Close() error {
	gzErr := r.gz.Close()
	if err := r.f.Close(); err != nil {
		return ioErr("close", r.f.Name(), err)
	}
	if gzErr != nil {
		return ioErr("decompress", r.f.Name(), gzErr)
	}
	return nil
}

// OpenContainer opens a compressed document and returns its decompressed
// stream. A missing gzip header is a *FormatError.
func OpenContainer(fs afero.Fs, path string) (io.ReadCloser, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, formatErr(path, "not a gzip container", err)
	}
	return &containerReader{f: f, gz: gz}, nil
}

type containerWriter struct {
	path string
	f    afero.File
	gz   *gzip.Writer
}

func (w *containerWriter) Write(p []byte) (int, error) {
	n, err := w.gz.Write(p)
	if err != nil {
		return n, ioErr("write", w.path, err)
	}
	return n, nil
}

func (w *containerWriter) Close() error {
	if err := w.gz.Close(); err != nil {
		w.f.Close()
		return ioErr("write", w.path, err)
	}
	if err := w.f.Close(); err != nil {
		return ioErr("close", w.path, err)
	}
	return nil
}

// CreateContainer creates or truncates path and returns a writer that
// compresses into it. Close must be called to flush the gzip trailer.
func CreateContainer(fs afero.Fs, path string) (io.WriteCloser, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	return &containerWriter{path: path, f: f, gz: gzip.NewWriter(f)}, nil
}

// ReadAll returns the whole decompressed content of a document.
func ReadAll(fs afero.Fs, path string) ([]byte, error) {
	rc, err := OpenContainer(fs, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteAll compresses content into path.
func WriteAll(fs afero.Fs, path string, content []byte) error {
	wc, err := CreateContainer(fs, path)
	if err != nil {
		return err
	}
	if _, err := wc.Write(content); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
