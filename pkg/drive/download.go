package drive

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const downloadLabel = "Downloaded chunk(s):"

// Download streams the named virtual file into a new local file at
// dstPath. The destination must not exist; the local filesystem error is
// surfaced verbatim when it does.
func (d *Drive) Download(name, dstPath string) error {
	files, err := d.Files(0)
	if err != nil {
		return err
	}
	if !files.Contains(name) {
		return &FileNotFoundError{Name: name}
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if err := d.downloadInto(files, name, dst); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// DownloadTo streams the named virtual file into the given writer.
func (d *Drive) DownloadTo(name string, dst io.Writer) error {
	files, err := d.Files(0)
	if err != nil {
		return err
	}
	if !files.Contains(name) {
		return &FileNotFoundError{Name: name}
	}
	return d.downloadInto(files, name, dst)
}

// downloadInto appends each chunk's attachment to dst in the order the
// mails were listed for the folder. Listing order matches chunk index
// order only for files uploaded over a single session; see the ordering
// note on distribute.
func (d *Drive) downloadInto(files *FileSet, name string, dst io.Writer) error {
	chunks := files.Chunks(name)
	total := len(chunks)

	for i, m := range chunks {
		d.log.Debug().Str("subject", m.Subject).Msg("downloading chunk")
		d.reportProgress(downloadLabel, i, total)

		content, err := d.sessions[0].Attachment(m)
		if err != nil {
			return errors.Wrapf(err, "download chunk %q", m.Subject)
		}
		written, err := dst.Write(content)
		if err != nil {
			return errors.Wrapf(err, "write chunk %q", m.Subject)
		}
		d.log.Debug().Int("bytes", written).Msg("wrote chunk")
	}

	d.reportProgress(downloadLabel, total, total)
	return nil
}
