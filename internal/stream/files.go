package stream

import (
	"context"
	"encoding/json"
	"io"

	"github.com/danjacka/mbrainz-importer/internal/fileutil"
)

// FileSource returns a producer that decodes one JSON value per line of
// path, in file order.
func FileSource[T any](path string) Producer[T] {
	return func(ctx context.Context, out chan<- T) error {
		return fileutil.EachLine(path, func(line []byte) error {
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				return err
			}
			return Send(ctx, out, v)
		})
	}
}

// FileSink returns a consumer that writes each value as one JSON line to
// path. The file is replaced atomically and only when the whole run
// succeeded; a canceled run leaves any previous file untouched.
func FileSink[T any](path string) Consumer[T] {
	return func(ctx context.Context, in <-chan T) error {
		return fileutil.WriteAtomic(path, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			for v := range in {
				if err := enc.Encode(v); err != nil {
					return err
				}
			}
			return ctx.Err()
		})
	}
}
