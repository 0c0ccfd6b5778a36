package drive

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/mathieures/ymd/pkg/chunk"
	"github.com/mathieures/ymd/pkg/email"
)

const uploadLabel = "Uploaded chunk(s):"

// chunkReader yields the payload of the chunk at the given index. Upload
// workers call it concurrently, so an implementation over a shared stream
// must serialize access itself.
type chunkReader func(index int) ([]byte, error)

// Upload stores the file or directory at srcPath under the target folder.
// A directory is mirrored recursively onto nested backend folders. A non
// zero startChunk resumes an interrupted upload at that chunk index.
// Local filesystem errors (missing source) are surfaced verbatim.
func (d *Drive) Upload(srcPath string, startChunk int) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		d.log.Debug().Str("path", srcPath).Msg("uploading folder recursively")
		return d.uploadTree(srcPath, startChunk)
	}
	return d.uploadFile(srcPath, filepath.Base(srcPath), startChunk, uploadLabel)
}

// UploadFrom stores the contents of an already-open seekable source as a
// virtual file with the given name.
func (d *Drive) UploadFrom(src io.ReadSeeker, name string, startChunk int) error {
	var mu sync.Mutex
	read := func(index int) ([]byte, error) {
		start, end := chunk.Bounds(index)
		mu.Lock()
		defer mu.Unlock()
		return chunk.Read(src, start, end)
	}

	length, err := streamLength(src)
	if err != nil {
		return err
	}
	return d.uploadChunks(name, length, startChunk, uploadLabel, read)
}

func (d *Drive) uploadFile(srcPath, name string, startChunk int, label string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	// Every worker opens the file on its own; no reader is shared between
	// sessions.
	read := func(index int) ([]byte, error) {
		f, err := os.Open(srcPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		start, end := chunk.Bounds(index)
		return chunk.Read(f, start, end)
	}

	return d.uploadChunks(name, info.Size(), startChunk, label, read)
}

// uploadChunks runs the existence guard, then hands the remaining chunk
// indices to the session pool.
func (d *Drive) uploadChunks(name string, length int64, startChunk int, label string, read chunkReader) error {
	d.log.Debug().Str("file", name).Msg("checking the existence of the file on the server")
	files, err := d.Files(0)
	if err != nil {
		return err
	}

	firstSubject := chunk.Subject(name, startChunk)
	for _, m := range files.Chunks(name) {
		if m.Subject == firstSubject {
			return &ChunkAlreadyExistsError{Subject: firstSubject}
		}
	}

	needed := chunk.Count(length)
	d.log.Debug().Int("chunks", needed).Msg("chunk count computed")

	var indices []int
	for index := startChunk; index < needed; index++ {
		indices = append(indices, index)
	}

	return d.distribute(indices, name, label, needed, read)
}

// distribute partitions the chunk indices into contiguous batches, one per
// session, and uploads the batches concurrently. Within a batch, chunks go
// out strictly in increasing index order; across sessions there is no
// ordering guarantee, so the backend's listing order for a multi-session
// upload does not necessarily match chunk index order.
func (d *Drive) distribute(indices []int, name, label string, total int, read chunkReader) error {
	workers := len(d.sessions)
	batches := partition(indices, workers)

	var uploaded atomic.Int64
	var wg sync.WaitGroup
	batchErrs := make([]error, workers)

	for worker, batch := range batches {
		wg.Add(1)
		go func(worker int, batch []int) {
			defer wg.Done()
			batchErrs[worker] = d.uploadBatch(d.sessions[worker], batch, name, label, total, &uploaded, read)
		}(worker, batch)
	}
	// Every batch is awaited, even when one fails early.
	wg.Wait()

	var firstErr error
	for _, err := range batchErrs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		} else {
			d.log.Error().Err(err).Msg("additional upload batch failure")
		}
	}
	if firstErr != nil {
		return firstErr
	}

	d.reportProgress(label, total, total)
	return nil
}

func (d *Drive) uploadBatch(sess Session, batch []int, name, label string, total int, uploaded *atomic.Int64, read chunkReader) error {
	for _, index := range batch {
		subject := chunk.Subject(name, index)

		payload, err := read(index)
		if err != nil {
			return errors.Wrapf(err, "read chunk %q", subject)
		}
		msg, err := email.BuildChunkMessage(subject, name, payload)
		if err != nil {
			return errors.Wrapf(err, "build chunk %q", subject)
		}

		d.log.Debug().Str("subject", subject).Msg("uploading chunk")
		d.reportProgress(label, int(uploaded.Load()), total)
		if err := sess.Save(msg, d.target); err != nil {
			return errors.Wrapf(err, "upload chunk %q", subject)
		}
		uploaded.Add(1)
	}
	return nil
}

// uploadTree mirrors a local directory onto nested backend folders with
// the same relative structure, uploading each directory's files before
// descending. The first ChunkAlreadyExistsError inside a directory aborts
// that directory's remaining entries.
func (d *Drive) uploadTree(root string, startChunk int) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		if entry.IsDir() {
			d.log.Debug().Str("path", path).Msg("detected subfolder to upload")
			previous := d.target
			if err := d.SetTarget(previous + "/" + entry.Name()); err != nil {
				return err
			}
			if err := d.uploadTree(path, startChunk); err != nil {
				return err
			}
			if err := d.SetTarget(previous); err != nil {
				return err
			}
			continue
		}

		err := d.uploadFile(path, entry.Name(), startChunk, path+":")
		var exists *ChunkAlreadyExistsError
		if errors.As(err, &exists) {
			d.log.Error().Err(err).Str("file", path).Msg("file already uploaded, skipping the rest of the directory")
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// partition splits the ordered indices into contiguous batches, one per
// worker. The earliest batches absorb the remainder, so no batch is empty
// unless there are fewer indices than workers.
func partition(indices []int, workers int) [][]int {
	batches := make([][]int, workers)
	if len(indices) == 0 {
		return batches
	}

	base := len(indices) / workers
	remainder := len(indices) % workers

	start := 0
	for i := range batches {
		size := base
		if i < remainder {
			size++
		}
		batches[i] = indices[start : start+size]
		start += size
	}
	return batches
}

// streamLength sizes a seekable source without consuming it.
func streamLength(src io.ReadSeeker) (int64, error) {
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	length, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := src.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return length, nil
}
