// Package codec converts in-memory binary photo objects to and from the
// storable byte representation used by the submission queue.
//
// Live readers and file handles do not survive store transactions or process
// restarts, so every photo is flattened to bytes before it is persisted and
// reconstructed as a reader when it is displayed or retransmitted. The
// conversion is lossless for data and MIME type; names are labels, not keys,
// and collisions are acceptable.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fiscalia/campo/internal/record"
)

// Error reports a failed conversion, typically a source object that could not
// be fully read.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("codec: photo %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("codec: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCodecError reports whether err is (or wraps) a codec Error.
func IsCodecError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

const defaultMIMEType = "image/jpeg"

// Encode reads the source's full content into a storable PhotoBlob. A missing
// name is synthesized from the current time, matching the capture naming used
// elsewhere in the system; a missing MIME type defaults to JPEG, the camera
// output format.
func Encode(src record.PhotoSource) (record.PhotoBlob, error) {
	if src.Reader == nil {
		return record.PhotoBlob{}, &Error{Name: src.Name, Err: errors.New("nil reader")}
	}
	data, err := io.ReadAll(src.Reader)
	if err != nil {
		return record.PhotoBlob{}, &Error{Name: src.Name, Err: fmt.Errorf("read: %w", err)}
	}

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("photo-%d.jpg", time.Now().UnixMilli())
	}
	mimeType := src.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	return record.PhotoBlob{Name: name, MIMEType: mimeType, Data: data}, nil
}

// EncodeAll encodes every source in order. It fails on the first unreadable
// source; nothing partially encoded is handed back.
func EncodeAll(srcs []record.PhotoSource) ([]record.PhotoBlob, error) {
	blobs := make([]record.PhotoBlob, 0, len(srcs))
	for _, src := range srcs {
		blob, err := Encode(src)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
	}
	return blobs, nil
}

// Decode reconstructs an in-memory binary object from a stored blob, suitable
// for display or for inclusion in a multipart request.
func Decode(blob record.PhotoBlob) record.PhotoSource {
	return record.PhotoSource{
		Name:     blob.Name,
		MIMEType: blob.MIMEType,
		Reader:   bytes.NewReader(blob.Data),
	}
}
